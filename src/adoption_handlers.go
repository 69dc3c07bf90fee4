package main

import (
	"errors"
	"net/http"
	"strings"

	"petpulse/src/db"
	"petpulse/src/middlewares"
	"petpulse/src/models"
	"petpulse/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var adoptionTransitions = map[types.AdoptionStatus][]types.AdoptionStatus{
	types.ADOPTION_PENDING:  {types.ADOPTION_APPROVED, types.ADOPTION_REJECTED, types.ADOPTION_CANCELLED},
	types.ADOPTION_APPROVED: {types.ADOPTION_COMPLETED, types.ADOPTION_CANCELLED},
}

func adoptionTransitionAllowed(from, to types.AdoptionStatus) bool {
	if from == to {
		return true
	}
	for _, s := range adoptionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func adoptionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/adoptions", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			var body types.CreateAdoptionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			var adoptionID uint
			err := db.Transaction(func(tx *gorm.DB) error {
				var pet models.Pet
				if err := tx.Where("id = ?", body.PetID).First(&pet).Error; err != nil {
					return err
				}
				if pet.IsAdopted {
					return errPetReserved
				}
				adoption := models.Adoption{
					UserID:           ctx.GetUint("id"),
					PetID:            pet.ID,
					Name:             strings.TrimSpace(body.Name),
					Phone:            strings.TrimSpace(body.Phone),
					Email:            strings.TrimSpace(body.Email),
					Address:          body.Address,
					VisitDate:        body.VisitDate,
					Reason:           body.Reason,
					Occupation:       body.Occupation,
					Experience:       body.Experience,
					LivingSpace:      body.LivingSpace,
					OtherPets:        body.OtherPets,
					TimeCommitment:   body.TimeCommitment,
					EmergencyContact: body.EmergencyContact,
					Status:           types.ADOPTION_PENDING,
				}
				if err := tx.Create(&adoption).Error; err != nil {
					return err
				}
				adoptionID = adoption.ID
				// the pet is reserved while the application is in flight
				return tx.
					Model(&models.Pet{}).
					Where("id = ?", pet.ID).
					Update("is_adopted", true).
					Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Pet not found"})
					return
				}
				if errors.Is(err, errPetReserved) {
					ctx.JSON(http.StatusConflict, gin.H{"success": false, "message": "Pet is already reserved"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"success": true, "id": adoptionID, "message": "Adoption application submitted successfully"})
		}).
		GET("/adoptions", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			db := db.GetDb()
			var list []models.Adoption
			err := db.
				Where(&models.Adoption{UserID: ctx.GetUint("id")}).
				Preload("Pet").
				Order("created_at desc").
				Find(&list).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, list)
		}).
		GET("/adoptions/all", func(ctx *gin.Context) {
			db := db.GetDb()
			var list []models.Adoption
			if err := db.Preload("Pet").Order("created_at desc").Find(&list).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, list)
		}).
		PATCH("/adoptions/:id/status", func(ctx *gin.Context) {
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
			newStatus := types.AdoptionStatus(body.Status)
			switch newStatus {
			case types.ADOPTION_PENDING, types.ADOPTION_APPROVED, types.ADOPTION_REJECTED, types.ADOPTION_CANCELLED, types.ADOPTION_COMPLETED:
			default:
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
				return
			}
			db := db.GetDb()
			var adoption models.Adoption
			if err := db.Where("id = ?", params.ID).First(&adoption).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !adoptionTransitionAllowed(adoption.Status, newStatus) {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status change"})
				return
			}
			updates := map[string]any{"status": newStatus}
			if newStatus == types.ADOPTION_REJECTED {
				updates["rejection_reason"] = strings.TrimSpace(body.RejectionReason)
			} else {
				updates["rejection_reason"] = ""
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Adoption{}).
					Where("id = ?", adoption.ID).
					Updates(updates).
					Error; err != nil {
					return err
				}
				// a dropped application releases the reserved pet
				if newStatus == types.ADOPTION_REJECTED || newStatus == types.ADOPTION_CANCELLED {
					return tx.
						Model(&models.Pet{}).
						Where("id = ?", adoption.PetID).
						Update("is_adopted", false).
						Error
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			adoption.Status = newStatus
			adoption.RejectionReason = updates["rejection_reason"].(string)
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "item": adoption})
		})
	return g
}

var errPetReserved = errors.New("pet is already reserved")
