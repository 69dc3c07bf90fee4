package main

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"petpulse/src/common"
	"petpulse/src/db"
	awslib "petpulse/src/lib/aws"
	"petpulse/src/middlewares"
	"petpulse/src/models"
	"petpulse/src/types"
	"petpulse/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func uploadsDir() string {
	dir := os.Getenv("UPLOADS_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return dir
}

// saveUploadedFile stores a multipart upload under the uploads dir and
// mirrors it to S3 in the background. A missing file field is not an error.
func saveUploadedFile(ctx *gin.Context, field string, subdir string) (*string, error) {
	file, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return storeMultipartFile(ctx, file, subdir)
}

func storeMultipartFile(ctx *gin.Context, file *multipart.FileHeader, subdir string) (*string, error) {
	dir := path.Join(uploadsDir(), subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stored := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(file.Filename))
	dst := path.Join(dir, stored)
	if err := ctx.SaveUploadedFile(file, dst); err != nil {
		return nil, err
	}
	contentType := file.Header.Get("Content-Type")
	go awslib.S3MirrorFile(ctx.Copy(), dst, path.Join(subdir, stored), contentType)
	return &dst, nil
}

func bindCreateAppointment(ctx *gin.Context, body *types.CreateAppointmentRequestBody) error {
	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		return ctx.ShouldBind(body)
	}
	return ctx.ShouldBindJSON(body)
}

func requireServiceFields(service types.ServiceKind, body *types.CreateAppointmentRequestBody) error {
	switch service {
	case types.SERVICE_VET:
		if body.PetSize == "" || body.Reason == "" {
			return common.Validationf("missing required fields")
		}
	case types.SERVICE_GROOMING:
		if body.PackageID == "" {
			return common.Validationf("missing required fields")
		}
	case types.SERVICE_DAYCARE:
		if body.PetName == "" || body.PackageID == "" {
			return common.Validationf("missing required fields")
		}
	}
	return nil
}

func calendarTitle(a *models.Appointment) string {
	switch a.Service {
	case types.SERVICE_GROOMING:
		pkg := a.PackageID
		if pkg == "" {
			pkg = "Grooming"
		}
		return fmt.Sprintf("%s • %s", a.PetType, pkg)
	case types.SERVICE_DAYCARE:
		pet := a.PetType
		if pet == "" {
			pet = "Pet"
		}
		pkg := a.PackageID
		if pkg == "" {
			pkg = "Daycare"
		}
		return fmt.Sprintf("%s • %s", pet, pkg)
	}
	return ""
}

func appointmentHandlers(g *gin.RouterGroup, service types.ServiceKind) *gin.RouterGroup {
	g.
		GET("/appointments", func(ctx *gin.Context) {
			date := ctx.Query("date")
			if date == "" {
				ctx.JSON(http.StatusOK, []types.CalendarItem{})
				return
			}
			if !utils.IsValidDateISO(date) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD."})
				return
			}
			db := db.GetDb()
			var rows []models.Appointment
			err := db.
				Model(&models.Appointment{}).
				Where(&models.Appointment{Service: service, DateISO: date}).
				Where("status NOT IN ?", []types.AppointmentStatus{types.APPOINTMENT_REJECTED, types.APPOINTMENT_CANCELLED}).
				Order("time_slot_minutes asc").
				Order("drop_off_minutes asc").
				Find(&rows).
				Error
			if err != nil {
				log.Printf("Error retrieving %s appointments: %s\n", service, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			items := make([]types.CalendarItem, 0, len(rows))
			for i := range rows {
				a := &rows[i]
				start, end, ok := common.BookingWindow(a)
				if !ok {
					continue
				}
				startLabel, _ := utils.MinutesToLabel(start)
				endLabel, _ := utils.MinutesToLabel(end % 1440)
				item := types.CalendarItem{
					ID:      a.ID,
					Date:    a.DateISO,
					Start:   startLabel,
					End:     endLabel,
					Title:   calendarTitle(a),
					Service: service,
					Status:  string(a.Status),
				}
				if a.TimeSlotMinutes != nil {
					item.StartMinutes = a.TimeSlotMinutes
				}
				items = append(items, item)
			}
			ctx.JSON(http.StatusOK, items)
		}).
		POST("/appointments", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			var body types.CreateAppointmentRequestBody
			if err := bindCreateAppointment(ctx, &body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := requireServiceFields(service, &body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			medicalFilePath, err := saveUploadedFile(ctx, "medicalFile", "medical")
			if err != nil {
				log.Printf("Medical file upload failed: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Medical file upload failed"})
				return
			}
			appt := models.Appointment{
				Service:         service,
				UserID:          ctx.GetUint("id"),
				OwnerName:       strings.TrimSpace(body.OwnerName),
				OwnerPhone:      strings.TrimSpace(body.OwnerPhone),
				OwnerEmail:      strings.TrimSpace(body.OwnerEmail),
				EmergencyPhone:  body.EmergencyPhone,
				PetType:         body.PetType,
				PetName:         body.PetName,
				PetSize:         body.PetSize,
				DateISO:         body.DateISO,
				TimeSlotMinutes: body.TimeSlotMinutes,
				DropOffMinutes:  body.DropOffMinutes,
				PickUpMinutes:   body.PickUpMinutes,
				PackageID:       body.PackageID,
				Reason:          strings.TrimSpace(body.Reason),
				Notes:           strings.TrimSpace(body.Notes),
				SelectedService: body.SelectedService,
				SelectedPrice:   body.SelectedPrice,
				MedicalFilePath: medicalFilePath,
			}
			if err := common.Reserve(ctx, &appt); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"ok": true, "id": appt.ID, "message": "Appointment created"})
		}).
		GET("/", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var list []models.Appointment
			err := db.
				Where(&models.Appointment{Service: service, UserID: userId}).
				Order("date_iso desc").
				Order("created_at desc").
				Find(&list).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, list)
		}).
		GET("/all", func(ctx *gin.Context) {
			db := db.GetDb()
			var list []models.Appointment
			err := db.
				Where(&models.Appointment{Service: service}).
				Order("date_iso desc").
				Order("created_at desc").
				Find(&list).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, list)
		}).
		GET("/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var appt models.Appointment
			err := db.
				Where(&models.Appointment{Service: service}).
				Where("id = ?", params.ID).
				First(&appt).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "data": appt})
		}).
		PUT("/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateAppointmentRequestBody
			var bindErr error
			if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
				bindErr = ctx.ShouldBind(&body)
			} else {
				bindErr = ctx.ShouldBindJSON(&body)
			}
			if bindErr != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
				return
			}
			db := db.GetDb()
			var existing models.Appointment
			err := db.
				Where(&models.Appointment{Service: service}).
				Where("id = ?", params.ID).
				First(&existing).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if existing.Status != types.APPOINTMENT_PENDING {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Only pending appointments can be edited"})
				return
			}
			// The visit reason is locked once booked; a different concern
			// needs a new booking.
			if service == types.SERVICE_VET && body.Reason != nil &&
				strings.TrimSpace(*body.Reason) != strings.TrimSpace(existing.Reason) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Reason cannot be changed after booking. Please create a new booking."})
				return
			}
			applyAppointmentUpdate(&existing, &body)
			if err := common.Reschedule(ctx, &existing); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			if file, err := ctx.FormFile("medicalFile"); err == nil && file != nil {
				stored, err := storeMultipartFile(ctx, file, "medical")
				if err != nil {
					log.Printf("Medical file update failed: %s\n", err.Error())
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Medical file update failed"})
					return
				}
				existing.MedicalFilePath = stored
			}
			if err := db.Save(&existing).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					ctx.JSON(http.StatusConflict, gin.H{"error": common.ErrSlotTaken.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "data": existing})
		}).
		DELETE("/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			res := db.
				Where(&models.Appointment{Service: service}).
				Where("id = ?", params.ID).
				Unscoped().
				Delete(&models.Appointment{})
			if res.Error != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "message": "Appointment deleted successfully"})
		}).
		PATCH("/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			newStatus, ok := common.ParseAppointmentStatus(body.Status)
			if !ok {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
				return
			}
			item, err := common.SetStatus(service, params.ID, newStatus, body.RejectionReason, body.ActorName)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "item": item})
		})
	return g
}

func applyAppointmentUpdate(appt *models.Appointment, body *types.UpdateAppointmentRequestBody) {
	if body.OwnerName != nil {
		appt.OwnerName = strings.TrimSpace(*body.OwnerName)
	}
	if body.OwnerPhone != nil {
		appt.OwnerPhone = strings.TrimSpace(*body.OwnerPhone)
	}
	if body.OwnerEmail != nil {
		appt.OwnerEmail = strings.TrimSpace(*body.OwnerEmail)
	}
	if body.PetType != nil {
		appt.PetType = *body.PetType
	}
	if body.PetName != nil {
		appt.PetName = *body.PetName
	}
	if body.PetSize != nil {
		appt.PetSize = *body.PetSize
	}
	if body.PackageID != nil {
		appt.PackageID = *body.PackageID
	}
	if body.DateISO != nil && *body.DateISO != "" {
		appt.DateISO = *body.DateISO
	}
	if body.TimeSlotMinutes != nil {
		appt.TimeSlotMinutes = body.TimeSlotMinutes
	}
	if body.DropOffMinutes != nil {
		appt.DropOffMinutes = body.DropOffMinutes
	}
	if body.PickUpMinutes != nil {
		appt.PickUpMinutes = body.PickUpMinutes
	}
	if body.SelectedService != nil {
		appt.SelectedService = *body.SelectedService
	}
	if body.SelectedPrice != nil {
		appt.SelectedPrice = body.SelectedPrice
	}
	if body.Notes != nil {
		appt.Notes = *body.Notes
	}
}
