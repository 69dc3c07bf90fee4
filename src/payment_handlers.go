package main

import (
	"encoding/json"
	"log"
	"net/http"

	"petpulse/src/common"
	"petpulse/src/db"
	"petpulse/src/middlewares"
	"petpulse/src/models"
	"petpulse/src/types"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments/upload-slip", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			file, err := ctx.FormFile("slip")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Slip file is required"})
				return
			}

			var order types.OrderPayload
			if err := json.Unmarshal([]byte(ctx.PostForm("order")), &order); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order JSON"})
				return
			}
			if len(order.Items) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Order must contain items"})
				return
			}

			subtotal := 0.0
			for _, it := range order.Items {
				subtotal += it.LineTotal
			}
			if order.Subtotal != nil {
				subtotal = *order.Subtotal
			}
			currency := order.Currency
			if currency == "" {
				currency = "LKR"
			}

			stored, err := storeMultipartFile(ctx, file, "slips")
			if err != nil {
				log.Printf("Could not store payment slip: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
				return
			}

			// simplified flow: a successful upload is verified immediately
			payment := models.Payment{
				Currency:        currency,
				Subtotal:        subtotal,
				Items:           types.PaymentItems(order.Items),
				Status:          types.PAYMENT_VERIFIED,
				UploadedByID:    ctx.GetUint("id"),
				UploadedByEmail: ctx.GetString("email"),
				Slip: &types.JSONB{
					"path":         *stored,
					"mime":         file.Header.Get("Content-Type"),
					"size":         file.Size,
					"originalName": file.Filename,
				},
			}
			if err := db.GetDb().Create(&payment).Error; err != nil {
				log.Printf("Could not record payment: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
				return
			}

			common.SetPaymentStatusForItems(order.Items, types.PAYMENT_PAID)

			ctx.JSON(http.StatusCreated, gin.H{
				"message":   "Slip uploaded successfully. Referenced items marked as PAID.",
				"paymentId": payment.ID,
			})
		}).
		PATCH("/payments/:id/status", func(ctx *gin.Context) {
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
			newStatus := types.PaymentRecordStatus(body.Status)
			if newStatus != types.PAYMENT_VERIFIED && newStatus != types.PAYMENT_REJECTED {
				ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
				return
			}
			db := db.GetDb()
			var payment models.Payment
			if err := db.Where("id = ?", params.ID).First(&payment).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
				return
			}
			if payment.Status != newStatus {
				err := db.
					Model(&models.Payment{}).
					Where("id = ?", payment.ID).
					Update("status", newStatus).
					Error
				if err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				payment.Status = newStatus
				// a rejected payment returns its items to unpaid
				state := types.PAYMENT_PAID
				if newStatus == types.PAYMENT_REJECTED {
					state = types.PAYMENT_UNPAID
				}
				common.SetPaymentStatusForItems([]types.OrderItem(payment.Items), state)
			}
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "item": payment})
		}).
		GET("/payments", middlewares.AuthMiddleware, func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Payment{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			role := ctx.GetString("role")
			if role != "admin" && role != "caretaker" {
				q = q.Where("uploaded_by_id = ?", ctx.GetUint("id"))
			}
			var payments []models.Payment
			if err := q.Order("created_at desc").Find(&payments).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		})
	return g
}
