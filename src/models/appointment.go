package models

import "petpulse/src/types"

// Appointment is a reserved service slot for any of the bookable services.
// Vet and grooming bookings carry a fixed-start TimeSlotMinutes with an
// implied duration; daycare bookings carry a DropOffMinutes/PickUpMinutes
// pair instead. The partial unique index created in boot.InitDb is the
// authoritative guard against two exact-slot bookings racing for the same
// slot; it is partial so rejected and cancelled rows free the slot up again.
type Appointment struct {
	ID      uint              `gorm:"primarykey" json:"id"`
	Service types.ServiceKind `gorm:"index:idx_service_date" json:"service"`
	UserID  uint              `json:"user_id,omitempty"`

	OwnerName      string `json:"ownerName,omitempty"`
	OwnerPhone     string `json:"ownerPhone,omitempty"`
	OwnerEmail     string `json:"ownerEmail,omitempty"`
	EmergencyPhone string `json:"emergencyPhone,omitempty"`

	PetType string `json:"petType,omitempty"`
	PetName string `json:"petName,omitempty"`
	PetSize string `json:"petSize,omitempty"`

	DateISO         string `gorm:"index:idx_service_date" json:"dateISO"`
	TimeSlotMinutes *int   `json:"timeSlotMinutes,omitempty"`
	DurationMin     int    `json:"durationMin,omitempty"`
	DropOffMinutes  *int   `json:"dropOffMinutes,omitempty"`
	PickUpMinutes   *int   `json:"pickUpMinutes,omitempty"`

	PackageID       string   `json:"packageId,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	SelectedService string   `json:"selectedService,omitempty"`
	SelectedPrice   *float64 `json:"selectedPrice,omitempty"`
	MedicalFilePath *string  `json:"medicalFilePath,omitempty"`

	Status          types.AppointmentStatus `gorm:"default:'pending'" json:"status"`
	PaymentStatus   types.PaymentState      `gorm:"default:'unpaid'" json:"paymentStatus"`
	RejectionReason string                  `json:"rejectionReason,omitempty"`
	ActorName       string                  `json:"actorName,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}
