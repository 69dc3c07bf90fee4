package common

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"petpulse/src/db"
	"petpulse/src/lib"
	"petpulse/src/models"
	"petpulse/src/types"
	"petpulse/src/utils"

	"gorm.io/gorm"
)

type WindowShape int

const (
	WindowExactSlot WindowShape = iota
	WindowInterval
)

// ServicePolicy captures how a service shapes its booking window. Exact-slot
// services book a fixed-start slot with an implied duration; interval
// services book an arbitrary drop-off/pick-up pair.
type ServicePolicy struct {
	Shape           WindowShape
	DefaultDuration int
}

var servicePolicies = map[types.ServiceKind]ServicePolicy{
	types.SERVICE_VET:      {Shape: WindowExactSlot, DefaultDuration: 30},
	types.SERVICE_GROOMING: {Shape: WindowExactSlot, DefaultDuration: 60},
	types.SERVICE_DAYCARE:  {Shape: WindowInterval},
}

func PolicyFor(service types.ServiceKind) (ServicePolicy, bool) {
	p, ok := servicePolicies[service]
	return p, ok
}

// BookingWindow derives the half-open [start, end) minute window of a
// persisted booking. ok is false when the row predates the fields needed to
// derive one.
func BookingWindow(a *models.Appointment) (start, end int, ok bool) {
	policy, found := servicePolicies[a.Service]
	if !found {
		return 0, 0, false
	}
	if policy.Shape == WindowExactSlot {
		if a.TimeSlotMinutes == nil {
			return 0, 0, false
		}
		d := a.DurationMin
		if d == 0 {
			d = policy.DefaultDuration
		}
		return *a.TimeSlotMinutes, *a.TimeSlotMinutes + d, true
	}
	if a.DropOffMinutes == nil || a.PickUpMinutes == nil {
		return 0, 0, false
	}
	return *a.DropOffMinutes, *a.PickUpMinutes, true
}

func validateWindow(appt *models.Appointment) (start, end int, err error) {
	policy := servicePolicies[appt.Service]
	if !utils.IsValidDateISO(appt.DateISO) {
		return 0, 0, Validationf("invalid date format, use YYYY-MM-DD")
	}
	if policy.Shape == WindowExactSlot {
		if appt.TimeSlotMinutes == nil {
			return 0, 0, Validationf("timeSlotMinutes is required")
		}
		slot := *appt.TimeSlotMinutes
		if slot < 0 || slot > 1439 {
			return 0, 0, Validationf("invalid timeSlotMinutes")
		}
		if appt.DurationMin == 0 {
			appt.DurationMin = policy.DefaultDuration
		}
		return slot, slot + appt.DurationMin, nil
	}
	if appt.DropOffMinutes == nil || appt.PickUpMinutes == nil {
		return 0, 0, Validationf("dropOffMinutes and pickUpMinutes are required")
	}
	drop, pick := *appt.DropOffMinutes, *appt.PickUpMinutes
	if drop < 0 || drop > 1439 {
		return 0, 0, Validationf("invalid dropOffMinutes")
	}
	if pick <= drop {
		return 0, 0, Validationf("pickUpMinutes must be after dropOffMinutes")
	}
	return drop, pick, nil
}

// CheckSlotConflict scans non-terminal bookings of the service on the date
// for an overlap with [start, end). excludeID skips the booking being
// edited. This read-check is the cheap early reject; for exact-slot services
// the unique index remains the final arbiter under races.
func CheckSlotConflict(service types.ServiceKind, dateISO string, start, end int, excludeID uint) error {
	conn := db.GetDb()
	var existing []models.Appointment
	q := conn.
		Model(&models.Appointment{}).
		Where(&models.Appointment{Service: service, DateISO: dateISO}).
		Where("status NOT IN ?", []types.AppointmentStatus{types.APPOINTMENT_REJECTED, types.APPOINTMENT_CANCELLED})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&existing).Error; err != nil {
		return err
	}
	for i := range existing {
		s, e, ok := BookingWindow(&existing[i])
		if !ok {
			continue
		}
		if utils.IntervalsOverlap(start, end, s, e) {
			return ErrSlotTaken
		}
	}
	return nil
}

// Reserve validates the requested window, rejects conflicts and persists the
// booking in pending state. Interval services are serialized per
// (service, date) through a redis lock since no unique index can back them;
// if the lock cannot be taken the read-check alone decides.
func Reserve(ctx context.Context, appt *models.Appointment) error {
	if _, ok := servicePolicies[appt.Service]; !ok {
		return Validationf("unknown service %q", appt.Service)
	}
	start, end, err := validateWindow(appt)
	if err != nil {
		return err
	}
	if servicePolicies[appt.Service].Shape == WindowInterval {
		release, locked := lib.AcquireDateLock(ctx, string(appt.Service), appt.DateISO)
		if locked {
			defer release()
		}
	}
	if err := CheckSlotConflict(appt.Service, appt.DateISO, start, end, 0); err != nil {
		return err
	}
	appt.Status = types.APPOINTMENT_PENDING
	if err := db.GetDb().Create(appt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

// Reschedule re-runs window validation and the conflict scan for an edited
// booking, excluding the booking itself, without persisting anything.
func Reschedule(ctx context.Context, appt *models.Appointment) error {
	start, end, err := validateWindow(appt)
	if err != nil {
		return err
	}
	if servicePolicies[appt.Service].Shape == WindowInterval {
		release, locked := lib.AcquireDateLock(ctx, string(appt.Service), appt.DateISO)
		if locked {
			defer release()
		}
	}
	return CheckSlotConflict(appt.Service, appt.DateISO, start, end, appt.ID)
}

var allowedTransitions = map[types.AppointmentStatus][]types.AppointmentStatus{
	types.APPOINTMENT_PENDING:  {types.APPOINTMENT_ACCEPTED, types.APPOINTMENT_REJECTED, types.APPOINTMENT_CANCELLED},
	types.APPOINTMENT_ACCEPTED: {types.APPOINTMENT_CANCELLED},
}

func transitionAllowed(from, to types.AppointmentStatus) bool {
	if from == to {
		return true
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ParseAppointmentStatus(s string) (types.AppointmentStatus, bool) {
	switch types.AppointmentStatus(s) {
	case types.APPOINTMENT_PENDING, types.APPOINTMENT_ACCEPTED, types.APPOINTMENT_REJECTED, types.APPOINTMENT_CANCELLED:
		return types.AppointmentStatus(s), true
	}
	return "", false
}

var notifier = NotifyStatusChange

// NewNotifier Replace the status-change notifier with a custom implementation
func NewNotifier(fn func(*StatusChangeInput)) {
	notifier = fn
}

// SetStatus drives the booking state machine. The write touches only the
// status columns: legacy rows missing newer required fields must still be
// operable. A transition into accepted or rejected from a different prior
// status hands one notification attempt to a background goroutine that the
// caller never waits on.
func SetStatus(service types.ServiceKind, id uint, newStatus types.AppointmentStatus, rejectionReason, actorName string) (*models.Appointment, error) {
	if _, ok := ParseAppointmentStatus(string(newStatus)); !ok {
		return nil, ErrInvalidTransition
	}
	conn := db.GetDb()
	var appt models.Appointment
	if err := conn.
		Where(&models.Appointment{Service: service}).
		Where("id = ?", id).
		First(&appt).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	prev := appt.Status
	if !transitionAllowed(prev, newStatus) {
		return nil, ErrInvalidTransition
	}

	updates := map[string]any{"status": newStatus}
	if newStatus == types.APPOINTMENT_REJECTED {
		updates["rejection_reason"] = strings.TrimSpace(rejectionReason)
	} else {
		updates["rejection_reason"] = ""
	}
	if actorName != "" {
		updates["actor_name"] = strings.TrimSpace(actorName)
	}
	if err := conn.
		Model(&models.Appointment{}).
		Where("id = ?", appt.ID).
		Updates(updates).
		Error; err != nil {
		return nil, err
	}
	appt.Status = newStatus
	appt.RejectionReason = updates["rejection_reason"].(string)
	if actorName != "" {
		appt.ActorName = strings.TrimSpace(actorName)
	}

	if prev != newStatus && (newStatus == types.APPOINTMENT_ACCEPTED || newStatus == types.APPOINTMENT_REJECTED) {
		notified := appt
		go notifier(&StatusChangeInput{
			ServiceType: service,
			Appointment: &notified,
			NewStatus:   newStatus,
			ActorName:   appt.ActorName,
		})
	}
	return &appt, nil
}

// SetPaymentStatusForItems fans the payment state out to every referenced
// booking or adoption. Items are independent: unknown services and invalid
// ids are skipped with a log line and a failed update never rolls back its
// siblings.
func SetPaymentStatusForItems(items []types.OrderItem, status types.PaymentState) {
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(it types.OrderItem) {
			defer wg.Done()
			setPaymentStatusForItem(it, status)
		}(item)
	}
	wg.Wait()
}

func setPaymentStatusForItem(item types.OrderItem, status types.PaymentState) {
	if item.ID == 0 {
		log.Printf("Skipping invalid reference id for service %q\n", item.Service)
		return
	}
	conn := db.GetDb()
	switch item.Service {
	case types.SERVICE_VET, types.SERVICE_GROOMING, types.SERVICE_DAYCARE:
		err := conn.
			Model(&models.Appointment{}).
			Where("id = ? AND service = ?", item.ID, item.Service).
			Update("payment_status", status).
			Error
		if err != nil {
			log.Printf("Could not update payment status for %s %d: %s\n", item.Service, item.ID, err.Error())
		}
	case types.SERVICE_ADOPTION:
		err := conn.
			Model(&models.Adoption{}).
			Where("id = ?", item.ID).
			Update("payment_status", status).
			Error
		if err != nil {
			log.Printf("Could not update payment status for adoption %d: %s\n", item.ID, err.Error())
		}
	default:
		log.Printf("Skipping unknown service %q for reference %d\n", item.Service, item.ID)
	}
}
