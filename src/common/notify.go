package common

import (
	"fmt"
	"log"
	"os"
	"strings"

	"petpulse/src/config"
	"petpulse/src/lib"
	awslib "petpulse/src/lib/aws"
	"petpulse/src/models"
	"petpulse/src/types"
	"petpulse/src/utils"
)

type StatusChangeInput struct {
	ServiceType types.ServiceKind
	Appointment *models.Appointment
	NewStatus   types.AppointmentStatus
	ActorName   string
}

func prettyService(k types.ServiceKind) string {
	if k == types.SERVICE_VET {
		return "Veterinary"
	}
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func minutesLabel(m *int) string {
	if m == nil {
		return ""
	}
	label, err := utils.MinutesToLabel(*m)
	if err != nil {
		return ""
	}
	return label
}

func timeLabel(a *models.Appointment) string {
	policy, ok := servicePolicies[a.Service]
	if ok && policy.Shape == WindowInterval {
		start := minutesLabel(a.DropOffMinutes)
		end := minutesLabel(a.PickUpMinutes)
		if start != "" && end != "" {
			return fmt.Sprintf("%s-%s", start, end)
		}
		if start != "" {
			return start
		}
		return end
	}
	return minutesLabel(a.TimeSlotMinutes)
}

// NotifyStatusChange tells the owner that a caretaker changed their booking.
// Email and SMS are attempted independently and each swallows its own
// delivery error: by the time this runs the status write has already
// succeeded and nothing here may surface to the caller.
func NotifyStatusChange(input *StatusChangeInput) {
	appt := input.Appointment
	actor := input.ActorName
	if actor == "" {
		actor = "Caretaker"
	}
	ownerName := appt.OwnerName
	if ownerName == "" {
		ownerName = "there"
	}
	svc := prettyService(input.ServiceType)

	text := fmt.Sprintf("%s, your %s appointment on %s", ownerName, svc, appt.DateISO)
	if tl := timeLabel(appt); tl != "" {
		text += fmt.Sprintf(" at %s", tl)
	}
	text += fmt.Sprintf(" was %s by %s.\nAppointment ID: %d", strings.ToUpper(string(input.NewStatus)), actor, appt.ID)
	if appt.RejectionReason != "" {
		text += fmt.Sprintf("\nReason: %s", appt.RejectionReason)
	}

	if appt.OwnerEmail != "" && os.Getenv("SMTP_HOST") != "" {
		err := lib.SendMail(&lib.SendMailInput{
			From:     os.Getenv("FROM_EMAIL"),
			FromName: config.APP_NAME,
			To:       []string{appt.OwnerEmail},
			Subject:  fmt.Sprintf("%s %s %s", config.APP_NAME, svc, input.NewStatus),
			Body:     text,
		})
		if err != nil {
			log.Printf("Email send error (ignored): %s\n", err.Error())
		} else {
			log.Printf("Email sent successfully to: %s\n", appt.OwnerEmail)
		}
	}

	if err := awslib.SNSPublishSMS(appt.OwnerPhone, text); err != nil {
		log.Printf("SMS send error (ignored): %s\n", err.Error())
	}
}
