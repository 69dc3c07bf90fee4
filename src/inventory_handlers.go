package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"petpulse/src/common"
	"petpulse/src/config"
	"petpulse/src/db"
	"petpulse/src/models"
	"petpulse/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func parseExpiry(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(config.DATE_ISO_FORMAT, *s)
	if err != nil {
		return nil, common.Validationf("invalid expiryDate")
	}
	return &t, nil
}

func inventoryHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/sales", func(ctx *gin.Context) {
			// Lazy refresh keeps the derived pricing current without a
			// background job; a consistent catalog costs zero writes here.
			if _, err := common.ApplyAutoDiscounts(); err != nil {
				log.Printf("Error refreshing discounts: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error refreshing discounts"})
				return
			}
			db := db.GetDb()
			var items []models.Product
			err := db.
				Model(&models.Product{}).
				Select("id", "name", "slug", "category", "price", "discount_price", "expiry_date", "quantity").
				Where("is_active = ?", true).
				Where("discount_price IS NOT NULL").
				Find(&items).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, items)
		}).
		GET("/inventory", func(ctx *gin.Context) {
			db := db.GetDb()
			var products []models.Product
			if err := db.Order("created_at desc").Find(&products).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": products, "count": len(products)})
		}).
		GET("/inventory/near-expiry", func(ctx *gin.Context) {
			db := db.GetDb()
			now := time.Now()
			cutoff := now.AddDate(0, 0, 30)
			var products []models.Product
			err := db.
				Where("is_active = ?", true).
				Where("expiry_date IS NOT NULL").
				Where("expiry_date BETWEEN ? AND ?", now, cutoff).
				Order("expiry_date asc").
				Find(&products).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch near-expiry products"})
				return
			}
			ctx.JSON(http.StatusOK, products)
		}).
		POST("/inventory", func(ctx *gin.Context) {
			var body types.CreateProductRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expiry, err := parseExpiry(body.ExpiryDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			product := models.Product{
				Name:        body.Name,
				Slug:        slug.Make(body.Name),
				Category:    body.Category,
				Description: body.Description,
				Supplier:    body.Supplier,
				Price:       body.Price,
				ExpiryDate:  expiry,
				Quantity:    body.Quantity,
				IsActive:    true,
			}
			if body.IsActive != nil {
				product.IsActive = *body.IsActive
			}
			if len(body.Tags) > 0 {
				meta := types.JSONB{"tags": body.Tags}
				product.Metadata = &meta
			}
			if err := db.GetDb().Create(&product).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, product)
		}).
		PUT("/inventory/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateProductRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var product models.Product
			if err := db.Where("id = ?", params.ID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if body.Name != nil {
				product.Name = *body.Name
				product.Slug = slug.Make(*body.Name)
			}
			if body.Category != nil {
				product.Category = *body.Category
			}
			if body.Description != nil {
				product.Description = *body.Description
			}
			if body.Price != nil {
				product.Price = *body.Price
			}
			if body.ExpiryDate != nil {
				expiry, err := parseExpiry(body.ExpiryDate)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				product.ExpiryDate = expiry
			}
			if body.Quantity != nil {
				product.Quantity = *body.Quantity
			}
			if body.IsActive != nil {
				product.IsActive = *body.IsActive
			}
			// keep a manual override in step with an edited price
			if product.ManualDiscountPercent != nil {
				v := common.Round2(product.Price * (1 - *product.ManualDiscountPercent/100))
				product.DiscountPrice = &v
			}
			if err := db.Save(&product).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, product)
		}).
		PATCH("/inventory/:id/stock", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateStockRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var product models.Product
			if err := db.Where("id = ?", params.ID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			qty := product.Quantity
			if body.Operation == "add" {
				qty += body.Quantity
			} else {
				qty -= body.Quantity
				if qty < 0 {
					ctx.JSON(http.StatusBadRequest, gin.H{"message": "Insufficient stock"})
					return
				}
			}
			err := db.
				Model(&models.Product{}).
				Where("id = ?", product.ID).
				Update("quantity", qty).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			product.Quantity = qty
			ctx.JSON(http.StatusOK, product)
		}).
		PATCH("/inventory/:id/discount", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ManualDiscountRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var product models.Product
			if err := db.Where("id = ?", params.ID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if *body.Discount <= 0 {
				// clear the override; the auto rule takes back over on the
				// next refresh
				product.ManualDiscountPercent = nil
				product.DiscountPrice = nil
			} else {
				if *body.Discount > 100 {
					ctx.JSON(http.StatusBadRequest, gin.H{"message": "Discount percent must be between 0 and 100"})
					return
				}
				product.ManualDiscountPercent = body.Discount
				v := common.Round2(product.Price * (1 - *body.Discount/100))
				product.DiscountPrice = &v
			}
			err := db.
				Model(&models.Product{}).
				Where("id = ?", product.ID).
				Select("manual_discount_percent", "discount_price").
				Updates(map[string]any{
					"manual_discount_percent": product.ManualDiscountPercent,
					"discount_price":          product.DiscountPrice,
				}).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating discount"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Discount updated", "product": product})
		})
	return g
}
