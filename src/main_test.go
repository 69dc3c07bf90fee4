package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"petpulse/src/common"
	"petpulse/src/db"
	"petpulse/src/middlewares"
	"petpulse/src/models"
	"petpulse/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB    *gorm.DB
	Token *string
}

var dbi *gorm.DB

func NewTestDB() *gorm.DB {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	inner, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error accessing inner db instance: %s", err.Error())
	}
	// payment fan-out writes from multiple goroutines
	inner.SetMaxOpenConns(1)
	return gormDB
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("dateiso", dateISOValidatorFunc)
	}
	os.Setenv("UPLOADS_DIR", s.T().TempDir())

	d := NewTestDB()
	db.NewDB(d)
	s.DB = d
	dbi = d

	err := dbi.AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.Appointment{},
		&models.Adoption{},
		&models.Product{},
		&models.Payment{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	if err := dbi.Exec(`
	CREATE UNIQUE INDEX IF NOT EXISTS idx_service_date_slot
	ON appointments (service, date_iso, time_slot_minutes)
	WHERE status NOT IN ('rejected', 'cancelled')
	  AND time_slot_minutes IS NOT NULL
	  AND deleted_at IS NULL
	`).Error; err != nil {
		log.Printf("Error creating INDEX idx_service_date_slot: %s\n", err.Error())
	}

	user := models.User{
		Email: "someone@example.com",
		Name:  "Test User",
	}
	if err := d.Create(&user).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	token, err := middlewares.GenerateToken(user.ID, user.Email, "user")
	if err != nil {
		log.Fatalf("Error generating token: %s\n", err.Error())
	}
	s.Token = &token
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Exec(`
	DELETE FROM payments WHERE true;
	DELETE FROM adoptions WHERE true;
	DELETE FROM appointments WHERE true;
	DELETE FROM products WHERE true;
	DELETE FROM pets WHERE true;
	DELETE FROM users WHERE true;
	`)
	inner.Close()
}

func (s *TestSuite) newRouter() *gin.Engine {
	router := setupRouter()
	registerRoutes(router)
	return router
}

func (s *TestSuite) send(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		rbytes, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(rbytes))
	}
	req, _ := http.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *s.Token))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestVetAppointments() {
	router := s.newRouter()

	body := map[string]any{
		"ownerName":       "Jamie Perera",
		"ownerPhone":      "0771234567",
		"ownerEmail":      "jamie@example.com",
		"petType":         "Dog",
		"petSize":         "medium",
		"reason":          "Vaccination",
		"dateISO":         "2025-03-01",
		"timeSlotMinutes": 600,
	}

	s.Run("Should create a vet appointment with 201 status", func() {
		w := s.send(router, "POST", "/api/v1/vet/appointments", body)
		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Greater(s.T(), gjson.GetBytes(rbytes, "id").Uint(), uint64(0))
	})

	s.Run("Should reject the same slot with 409 status", func() {
		w := s.send(router, "POST", "/api/v1/vet/appointments", body)
		assert.Equal(s.T(), 409, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Contains(s.T(), gjson.GetBytes(rbytes, "error").String(), "already booked")
	})

	s.Run("Should allow the next touching slot", func() {
		next := map[string]any{}
		for k, v := range body {
			next[k] = v
		}
		next["timeSlotMinutes"] = 630
		w := s.send(router, "POST", "/api/v1/vet/appointments", next)
		assert.Equal(s.T(), 201, w.Code)
	})

	s.Run("Should reject a booking with missing vet fields", func() {
		bad := map[string]any{}
		for k, v := range body {
			bad[k] = v
		}
		delete(bad, "petSize")
		bad["timeSlotMinutes"] = 660
		w := s.send(router, "POST", "/api/v1/vet/appointments", bad)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return the calendar feed for the day", func() {
		w := s.send(router, "GET", "/api/v1/vet/appointments?date=2025-03-01", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		items := gjson.ParseBytes(rbytes).Array()
		assert.Len(s.T(), items, 2)
		assert.Equal(s.T(), "10:00 AM", items[0].Get("start").String())
		assert.Equal(s.T(), "10:30 AM", items[0].Get("end").String())
	})

	s.Run("Should return 400 for a malformed feed date", func() {
		w := s.send(router, "GET", "/api/v1/vet/appointments?date=03/01/2025", nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return an empty feed without a date", func() {
		w := s.send(router, "GET", "/api/v1/vet/appointments", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "[]", strings.TrimSpace(string(rbytes)))
	})
}

func (s *TestSuite) TestStatusTransitions() {
	router := s.newRouter()

	notifications := make(chan *common.StatusChangeInput, 4)
	common.NewNotifier(func(in *common.StatusChangeInput) {
		notifications <- in
	})
	defer common.NewNotifier(common.NotifyStatusChange)

	create := func(slot int) uint {
		w := s.send(router, "POST", "/api/v1/vet/appointments", map[string]any{
			"ownerName":       "Jamie Perera",
			"ownerPhone":      "0771234567",
			"ownerEmail":      "jamie@example.com",
			"petType":         "Dog",
			"petSize":         "medium",
			"reason":          "Checkup",
			"dateISO":         "2025-03-02",
			"timeSlotMinutes": slot,
		})
		assert.Equal(s.T(), 201, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		return uint(gjson.GetBytes(rbytes, "id").Uint())
	}
	waitNotification := func() *common.StatusChangeInput {
		select {
		case in := <-notifications:
			return in
		case <-time.After(2 * time.Second):
			s.T().Fatal("Timed out waiting for status notification")
			return nil
		}
	}

	id := create(720)

	s.Run("Should accept a pending appointment and notify once", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/vet/appointments/%d/status", id), map[string]any{
			"status":    "accepted",
			"actorName": "Dr. Silva",
		})
		assert.Equal(s.T(), 200, w.Code)
		in := waitNotification()
		assert.Equal(s.T(), types.APPOINTMENT_ACCEPTED, in.NewStatus)
		assert.Equal(s.T(), "Dr. Silva", in.ActorName)
		assert.Equal(s.T(), id, in.Appointment.ID)
	})

	s.Run("Should refuse accepted to rejected", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/vet/appointments/%d/status", id), map[string]any{
			"status": "rejected",
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should cancel an accepted appointment without notifying", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/vet/appointments/%d/status", id), map[string]any{
			"status": "cancelled",
		})
		assert.Equal(s.T(), 200, w.Code)
		time.Sleep(200 * time.Millisecond)
		assert.Len(s.T(), notifications, 0)
	})

	s.Run("Should refuse an unknown status value", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/vet/appointments/%d/status", id), map[string]any{
			"status": "confirmed",
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should persist the rejection reason and free the slot", func() {
		rejectedID := create(780)
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/vet/appointments/%d/status", rejectedID), map[string]any{
			"status":          "rejected",
			"rejectionReason": "fully booked",
		})
		assert.Equal(s.T(), 200, w.Code)
		waitNotification()

		w = s.send(router, "GET", fmt.Sprintf("/api/v1/vet/appointments/%d", rejectedID), nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "rejected", gjson.GetBytes(rbytes, "data.status").String())
		assert.Equal(s.T(), "fully booked", gjson.GetBytes(rbytes, "data.rejectionReason").String())

		// rejected bookings no longer hold the slot
		create(780)
	})

	s.Run("Should return 404 for a status change on a missing id", func() {
		w := s.send(router, "PATCH", "/api/v1/vet/appointments/999999/status", map[string]any{
			"status": "accepted",
		})
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestDaycareBookings() {
	router := s.newRouter()

	book := func(drop, pick int) *httptest.ResponseRecorder {
		return s.send(router, "POST", "/api/v1/daycare/appointments", map[string]any{
			"ownerName":      "Jamie Perera",
			"ownerPhone":     "0771234567",
			"ownerEmail":     "jamie@example.com",
			"petType":        "Dog",
			"petName":        "Rexy",
			"packageId":      "full-day",
			"dateISO":        "2025-04-01",
			"dropOffMinutes": drop,
			"pickUpMinutes":  pick,
		})
	}

	s.Run("Should create a daycare booking with 201 status", func() {
		assert.Equal(s.T(), 201, book(540, 600).Code)
	})

	s.Run("Should reject an overlapping window with 409 status", func() {
		assert.Equal(s.T(), 409, book(570, 630).Code)
	})

	s.Run("Should allow a window touching the previous pick-up", func() {
		assert.Equal(s.T(), 201, book(600, 660).Code)
	})

	s.Run("Should reject a pick-up before the drop-off", func() {
		assert.Equal(s.T(), 400, book(700, 660).Code)
	})
}

func (s *TestSuite) TestAppointmentEdits() {
	router := s.newRouter()

	w := s.send(router, "POST", "/api/v1/grooming/appointments", map[string]any{
		"ownerName":       "Jamie Perera",
		"ownerPhone":      "0771234567",
		"ownerEmail":      "jamie@example.com",
		"petType":         "Cat",
		"packageId":       "deluxe",
		"dateISO":         "2025-04-02",
		"timeSlotMinutes": 540,
	})
	assert.Equal(s.T(), 201, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	id := gjson.GetBytes(rbytes, "id").Uint()

	s.Run("Should move a pending appointment to a free slot", func() {
		w := s.send(router, "PUT", fmt.Sprintf("/api/v1/grooming/appointments/%d", id), map[string]any{
			"timeSlotMinutes": 660,
		})
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), int64(660), gjson.GetBytes(rbytes, "data.timeSlotMinutes").Int())
	})

	s.Run("Should refuse edits once accepted", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/grooming/appointments/%d/status", id), map[string]any{
			"status": "accepted",
		})
		assert.Equal(s.T(), 200, w.Code)

		w = s.send(router, "PUT", fmt.Sprintf("/api/v1/grooming/appointments/%d", id), map[string]any{
			"timeSlotMinutes": 720,
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should delete an appointment", func() {
		w := s.send(router, "DELETE", fmt.Sprintf("/api/v1/grooming/appointments/%d", id), nil)
		assert.Equal(s.T(), 200, w.Code)

		w = s.send(router, "DELETE", fmt.Sprintf("/api/v1/grooming/appointments/%d", id), nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestInventoryDiscounts() {
	router := s.newRouter()

	expiry := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	w := s.send(router, "POST", "/api/v1/inventory", map[string]any{
		"name":       "Puppy Chow 5kg",
		"category":   "food",
		"price":      100.0,
		"quantity":   10,
		"expiryDate": expiry,
	})
	assert.Equal(s.T(), 201, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	id := gjson.GetBytes(rbytes, "id").Uint()

	salesDiscountFor := func(productID uint64) gjson.Result {
		w := s.send(router, "GET", "/api/v1/sales", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		for _, item := range gjson.ParseBytes(rbytes).Array() {
			if item.Get("id").Uint() == productID {
				return item.Get("discountPrice")
			}
		}
		return gjson.Result{}
	}

	s.Run("Should auto-discount a near-expiry product by 30 percent", func() {
		assert.Equal(s.T(), 70.0, salesDiscountFor(id).Float())
	})

	s.Run("Should let a manual discount override the auto rule", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/inventory/%d/discount", id), map[string]any{
			"discount": 50.0,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), 50.0, salesDiscountFor(id).Float())
	})

	s.Run("Should fall back to the auto rule when the override is cleared", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/inventory/%d/discount", id), map[string]any{
			"discount": 0.0,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), 70.0, salesDiscountFor(id).Float())
	})

	s.Run("Should refuse a discount above 100 percent", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/inventory/%d/discount", id), map[string]any{
			"discount": 150.0,
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should adjust and guard stock levels", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/inventory/%d/stock", id), map[string]any{
			"operation": "add",
			"quantity":  5,
		})
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), int64(15), gjson.GetBytes(rbytes, "quantity").Int())

		w = s.send(router, "PATCH", fmt.Sprintf("/api/v1/inventory/%d/stock", id), map[string]any{
			"operation": "subtract",
			"quantity":  100,
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should list the product among near-expiry items", func() {
		w := s.send(router, "GET", "/api/v1/inventory/near-expiry", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		found := false
		for _, item := range gjson.ParseBytes(rbytes).Array() {
			if item.Get("id").Uint() == id {
				found = true
			}
		}
		assert.True(s.T(), found)
	})
}

func (s *TestSuite) TestPaymentSlipUpload() {
	router := s.newRouter()

	w := s.send(router, "POST", "/api/v1/grooming/appointments", map[string]any{
		"ownerName":       "Jamie Perera",
		"ownerPhone":      "0771234567",
		"ownerEmail":      "jamie@example.com",
		"petType":         "Cat",
		"packageId":       "basic",
		"dateISO":         "2025-05-01",
		"timeSlotMinutes": 540,
	})
	assert.Equal(s.T(), 201, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	apptID := gjson.GetBytes(rbytes, "id").Uint()

	order := map[string]any{
		"currency": "LKR",
		"items": []map[string]any{
			{"id": apptID, "service": "grooming", "basePrice": 1500.0, "lineTotal": 1500.0},
		},
	}
	orderBytes, _ := json.Marshal(order)

	buildUpload := func(withSlip bool, orderField string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if withSlip {
			fw, _ := mw.CreateFormFile("slip", "slip.jpg")
			fw.Write([]byte("not really a jpeg"))
		}
		mw.WriteField("order", orderField)
		mw.Close()
		req, _ := http.NewRequest("POST", "/api/v1/payments/upload-slip", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *s.Token))
		return req
	}

	s.Run("Should record the payment and mark the booking paid", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, buildUpload(true, string(orderBytes)))
		assert.Equal(s.T(), 201, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Greater(s.T(), gjson.GetBytes(rbytes, "paymentId").Uint(), uint64(0))

		var appt models.Appointment
		err := dbi.Where("id = ?", apptID).First(&appt).Error
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), types.PAYMENT_PAID, appt.PaymentStatus)
	})

	s.Run("Should require the slip file", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, buildUpload(false, string(orderBytes)))
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a malformed order payload", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, buildUpload(true, "{not json"))
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should revert items to unpaid when the payment is rejected", func() {
		var payment models.Payment
		assert.Nil(s.T(), dbi.Order("id desc").First(&payment).Error)

		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/payments/%d/status", payment.ID), map[string]any{
			"status": "rejected",
		})
		assert.Equal(s.T(), 200, w.Code)

		var appt models.Appointment
		assert.Nil(s.T(), dbi.Where("id = ?", apptID).First(&appt).Error)
		assert.Equal(s.T(), types.PAYMENT_UNPAID, appt.PaymentStatus)
	})

	s.Run("Should list the uploader's payments", func() {
		w := s.send(router, "GET", "/api/v1/payments", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Greater(s.T(), gjson.GetBytes(rbytes, "count").Int(), int64(0))
	})
}

func (s *TestSuite) TestAdoptions() {
	router := s.newRouter()

	pet := models.Pet{Name: "Biscuit", Species: "Dog", Breed: "Mixed"}
	assert.Nil(s.T(), dbi.Create(&pet).Error)

	apply := func(petID uint) *httptest.ResponseRecorder {
		return s.send(router, "POST", "/api/v1/adoptions", map[string]any{
			"pet":     petID,
			"name":    "Jamie Perera",
			"phone":   "0771234567",
			"email":   "jamie@example.com",
			"address": "12 Lake Road, Colombo",
		})
	}

	w := apply(pet.ID)
	assert.Equal(s.T(), 201, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	adoptionID := gjson.GetBytes(rbytes, "id").Uint()

	s.Run("Should reserve the pet for the applicant", func() {
		var reserved models.Pet
		assert.Nil(s.T(), dbi.Where("id = ?", pet.ID).First(&reserved).Error)
		assert.True(s.T(), reserved.IsAdopted)

		assert.Equal(s.T(), 409, apply(pet.ID).Code)
	})

	s.Run("Should walk the application to completed", func() {
		w := s.send(router, "PATCH", fmt.Sprintf("/api/v1/adoptions/%d/status", adoptionID), map[string]any{
			"status": "approved",
		})
		assert.Equal(s.T(), 200, w.Code)

		w = s.send(router, "PATCH", fmt.Sprintf("/api/v1/adoptions/%d/status", adoptionID), map[string]any{
			"status": "completed",
		})
		assert.Equal(s.T(), 200, w.Code)

		w = s.send(router, "PATCH", fmt.Sprintf("/api/v1/adoptions/%d/status", adoptionID), map[string]any{
			"status": "pending",
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should release the pet when an application is rejected", func() {
		second := models.Pet{Name: "Mochi", Species: "Cat"}
		assert.Nil(s.T(), dbi.Create(&second).Error)

		w := apply(second.ID)
		assert.Equal(s.T(), 201, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		rejectedID := gjson.GetBytes(rbytes, "id").Uint()

		w = s.send(router, "PATCH", fmt.Sprintf("/api/v1/adoptions/%d/status", rejectedID), map[string]any{
			"status":          "rejected",
			"rejectionReason": "home visit failed",
		})
		assert.Equal(s.T(), 200, w.Code)

		var released models.Pet
		assert.Nil(s.T(), dbi.Where("id = ?", second.ID).First(&released).Error)
		assert.False(s.T(), released.IsAdopted)
	})

	s.Run("Should list the applicant's adoptions", func() {
		w := s.send(router, "GET", "/api/v1/adoptions", nil)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.GreaterOrEqual(s.T(), len(gjson.ParseBytes(rbytes).Array()), 1)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
