package models

import "petpulse/src/types"

type Adoption struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `json:"user_id,omitempty"`
	PetID  uint `json:"pet_id"`

	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Address          string `json:"address,omitempty"`
	VisitDate        string `json:"visit,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Occupation       string `json:"occupation,omitempty"`
	Experience       string `json:"experience,omitempty"`
	LivingSpace      string `json:"livingSpace,omitempty"`
	OtherPets        string `json:"otherPets,omitempty"`
	TimeCommitment   string `json:"timeCommitment,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`

	Status          types.AdoptionStatus `gorm:"default:'pending'" json:"status"`
	PaymentStatus   types.PaymentState   `gorm:"default:'unpaid'" json:"paymentStatus"`
	RejectionReason string               `json:"rejectionReason,omitempty"`

	Pet  *Pet  `gorm:"foreignKey:pet_id" json:"pet,omitempty"`
	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}
