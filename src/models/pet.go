package models

import "petpulse/src/types"

type Pet struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `json:"name"`
	Species     string `json:"species,omitempty"`
	Breed       string `json:"breed,omitempty"`
	Age         string `json:"age,omitempty"`
	Description string `json:"description,omitempty"`

	// IsAdopted marks a pet reserved by a pending or approved application.
	IsAdopted bool `gorm:"default:false" json:"isAdopted"`

	types.Timestamps
}
