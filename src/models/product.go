package models

import (
	"time"

	"petpulse/src/types"
)

type Product struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Name        string  `json:"name"`
	Slug        string  `gorm:"index" json:"slug,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Supplier    string  `json:"supplier,omitempty"`
	Price       float64 `json:"price"`

	// ExpiryDate drives the automatic time-decay discount. DiscountPrice is
	// derived; ManualDiscountPercent, when set, overrides the auto rule.
	ExpiryDate            *time.Time `json:"expiryDate,omitempty"`
	DiscountPrice         *float64   `json:"discountPrice,omitempty"`
	ManualDiscountPercent *float64   `json:"manualDiscountPercent,omitempty"`

	Quantity int          `json:"quantity"`
	IsActive bool         `gorm:"default:true" json:"isActive"`
	Metadata *types.JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps
}
