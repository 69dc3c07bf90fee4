package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}

type ServiceKind string

const (
	SERVICE_VET      ServiceKind = "vet"
	SERVICE_GROOMING ServiceKind = "grooming"
	SERVICE_DAYCARE  ServiceKind = "daycare"
	SERVICE_ADOPTION ServiceKind = "adoption"
)

type AppointmentStatus string

const (
	APPOINTMENT_PENDING   AppointmentStatus = "pending"
	APPOINTMENT_ACCEPTED  AppointmentStatus = "accepted"
	APPOINTMENT_REJECTED  AppointmentStatus = "rejected"
	APPOINTMENT_CANCELLED AppointmentStatus = "cancelled"
)

// PaymentState tracks whether the booked service has been paid for.
type PaymentState string

const (
	PAYMENT_UNPAID PaymentState = "unpaid"
	PAYMENT_PAID   PaymentState = "paid"
)

type PaymentRecordStatus string

const (
	PAYMENT_PENDING_VERIFICATION PaymentRecordStatus = "pending_verification"
	PAYMENT_VERIFIED             PaymentRecordStatus = "verified"
	PAYMENT_REJECTED             PaymentRecordStatus = "rejected"
)

type AdoptionStatus string

const (
	ADOPTION_PENDING   AdoptionStatus = "pending"
	ADOPTION_APPROVED  AdoptionStatus = "approved"
	ADOPTION_REJECTED  AdoptionStatus = "rejected"
	ADOPTION_CANCELLED AdoptionStatus = "cancelled"
	ADOPTION_COMPLETED AdoptionStatus = "completed"
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateAppointmentRequestBody struct {
	OwnerName       string   `json:"ownerName" form:"ownerName" binding:"required"`
	OwnerPhone      string   `json:"ownerPhone" form:"ownerPhone" binding:"required"`
	OwnerEmail      string   `json:"ownerEmail" form:"ownerEmail" binding:"required,email"`
	PetType         string   `json:"petType" form:"petType" binding:"required"`
	PetName         string   `json:"petName" form:"petName"`
	PetSize         string   `json:"petSize" form:"petSize"`
	EmergencyPhone  string   `json:"emergencyPhone" form:"emergencyPhone"`
	Reason          string   `json:"reason" form:"reason"`
	PackageID       string   `json:"packageId" form:"packageId"`
	DateISO         string   `json:"dateISO" form:"dateISO" binding:"required,dateiso"`
	TimeSlotMinutes *int     `json:"timeSlotMinutes" form:"timeSlotMinutes"`
	DropOffMinutes  *int     `json:"dropOffMinutes" form:"dropOffMinutes"`
	PickUpMinutes   *int     `json:"pickUpMinutes" form:"pickUpMinutes"`
	SelectedService string   `json:"selectedService" form:"selectedService"`
	SelectedPrice   *float64 `json:"selectedPrice" form:"selectedPrice"`
	Notes           string   `json:"notes" form:"notes"`
}

type UpdateAppointmentRequestBody struct {
	OwnerName       *string  `json:"ownerName" form:"ownerName"`
	OwnerPhone      *string  `json:"ownerPhone" form:"ownerPhone"`
	OwnerEmail      *string  `json:"ownerEmail" form:"ownerEmail" binding:"omitempty,email"`
	PetType         *string  `json:"petType" form:"petType"`
	PetName         *string  `json:"petName" form:"petName"`
	PetSize         *string  `json:"petSize" form:"petSize"`
	Reason          *string  `json:"reason" form:"reason"`
	PackageID       *string  `json:"packageId" form:"packageId"`
	DateISO         *string  `json:"dateISO" form:"dateISO" binding:"omitempty,dateiso"`
	TimeSlotMinutes *int     `json:"timeSlotMinutes" form:"timeSlotMinutes"`
	DropOffMinutes  *int     `json:"dropOffMinutes" form:"dropOffMinutes"`
	PickUpMinutes   *int     `json:"pickUpMinutes" form:"pickUpMinutes"`
	SelectedService *string  `json:"selectedService" form:"selectedService"`
	SelectedPrice   *float64 `json:"selectedPrice" form:"selectedPrice"`
	Notes           *string  `json:"notes" form:"notes"`
}

type UpdateStatusRequestBody struct {
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	ActorName       string `json:"actorName,omitempty"`
}

type CalendarItem struct {
	ID           uint        `json:"id"`
	Date         string      `json:"date"`
	Start        string      `json:"start"`
	End          string      `json:"end"`
	StartMinutes *int        `json:"startMinutes,omitempty"`
	Title        string      `json:"title,omitempty"`
	Service      ServiceKind `json:"service"`
	Status       string      `json:"status"`
}

type CreateProductRequestBody struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	ExpiryDate  *string  `json:"expiryDate,omitempty" binding:"omitempty,dateiso"`
	Quantity    int      `json:"quantity,omitempty" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"isActive,omitempty"`
	Supplier    string   `json:"supplier,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type UpdateProductRequestBody struct {
	Name        *string  `json:"name,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" binding:"omitempty,gt=0"`
	ExpiryDate  *string  `json:"expiryDate,omitempty" binding:"omitempty,dateiso"`
	Quantity    *int     `json:"quantity,omitempty" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

type ManualDiscountRequestBody struct {
	Discount *float64 `json:"discount" binding:"required"`
}

type UpdateStockRequestBody struct {
	Operation string `json:"operation" binding:"required,oneof=add subtract"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type OrderExtra struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderItem struct {
	ID        uint         `json:"id"`
	Service   ServiceKind  `json:"service"`
	Title     string       `json:"title,omitempty"`
	Date      string       `json:"date,omitempty"`
	Time      string       `json:"time,omitempty"`
	BasePrice float64      `json:"basePrice"`
	Extras    []OrderExtra `json:"extras,omitempty"`
	LineTotal float64      `json:"lineTotal"`
}

type OrderPayload struct {
	Currency string      `json:"currency"`
	Subtotal *float64    `json:"subtotal,omitempty"`
	Items    []OrderItem `json:"items"`
}

// PaymentItems is the persisted line-item list of a payment record.
type PaymentItems []OrderItem

func (a PaymentItems) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *PaymentItems) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

type CreateAdoptionRequestBody struct {
	PetID            uint   `json:"pet" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Address          string `json:"address" binding:"required"`
	VisitDate        string `json:"visit,omitempty" binding:"omitempty,dateiso"`
	Reason           string `json:"reason,omitempty"`
	Occupation       string `json:"occupation,omitempty"`
	Experience       string `json:"experience,omitempty"`
	LivingSpace      string `json:"livingSpace,omitempty"`
	OtherPets        string `json:"otherPets,omitempty"`
	TimeCommitment   string `json:"timeCommitment,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
}
