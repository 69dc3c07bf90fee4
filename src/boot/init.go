package boot

import (
	"log"

	"petpulse/src/common"
	"petpulse/src/db"
	"petpulse/src/lib"
	"petpulse/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
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

	// Partial so rejected and cancelled bookings release the slot while
	// still being kept around as rows.
	if err := db.Exec(`
	CREATE UNIQUE INDEX IF NOT EXISTS idx_service_date_slot
	ON appointments (service, date_iso, time_slot_minutes)
	WHERE status NOT IN ('rejected', 'cancelled')
	  AND time_slot_minutes IS NOT NULL
	  AND deleted_at IS NULL
	`).Error; err != nil {
		log.Printf("Error creating INDEX idx_service_date_slot: %s\n", err.Error())
	}

	return db
}

// InitScheduler starts the nightly catalog sweep that delists expired
// products. Discount refresh itself stays on the read path, not here.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	id, err := lib.CreateDailyJob(common.DeactivateExpiredProducts, 0, 30)
	if err != nil {
		log.Printf("Error scheduling catalog sweep: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled catalog sweep job: %s\n", *id)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}
