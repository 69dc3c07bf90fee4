package models

import "petpulse/src/types"

// Payment is one payment-capture event: a bank slip uploaded against a batch
// of bookings and/or adoptions. In the simplified flow a successful upload
// records the payment as verified immediately.
type Payment struct {
	ID       uint                      `gorm:"primarykey" json:"id"`
	Currency string                    `gorm:"default:'LKR'" json:"currency"`
	Subtotal float64                   `json:"subtotal"`
	Items    types.PaymentItems        `gorm:"type:jsonb" json:"items"`
	Status   types.PaymentRecordStatus `gorm:"default:'pending_verification';index" json:"status"`

	UploadedByID    uint         `json:"uploaded_by_id,omitempty"`
	UploadedByEmail string       `json:"uploaded_by_email,omitempty"`
	Slip            *types.JSONB `gorm:"type:jsonb" json:"slip,omitempty"`

	types.Timestamps
}
