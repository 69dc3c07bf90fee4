package models

import "petpulse/src/types"

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `gorm:"index" json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `gorm:"default:'user'" json:"role,omitempty"`

	Appointments []Appointment `gorm:"foreignKey:user_id" json:"appointments,omitempty"`
	Adoptions    []Adoption    `gorm:"foreignKey:user_id" json:"adoptions,omitempty"`

	types.Timestamps
}
