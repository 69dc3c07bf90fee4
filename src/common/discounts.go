package common

import (
	"log"
	"math"
	"time"

	"petpulse/src/db"
	"petpulse/src/models"
)

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// truncateToDay pins a timestamp to its calendar day in UTC so day
// differences come out as exact multiples of 24h.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeAutoDiscount derives the time-decay discount price from a product's
// expiry date, at day granularity. Expired products are not discounted: they
// are expected to be delisted through IsActive instead.
func ComputeAutoDiscount(p *models.Product) *float64 {
	if p.ExpiryDate == nil || p.Price <= 0 {
		return nil
	}
	today := truncateToDay(time.Now())
	expiry := truncateToDay(*p.ExpiryDate)
	days := int(expiry.Sub(today).Hours() / 24)
	if days <= 0 {
		return nil
	}
	if days <= 7 {
		v := Round2(p.Price * 0.70)
		return &v
	}
	if days <= 30 {
		v := Round2(p.Price * 0.90)
		return &v
	}
	return nil
}

func discountEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ApplyAutoDiscounts reconciles every active product's discount price with
// the manual override or the auto rule, writing only the rows that drifted.
// It runs at the top of every sales/dashboard read, so a consistent catalog
// must produce zero writes, and concurrent invocations only ever race on
// identical single-column updates. Returns the number of rows written.
func ApplyAutoDiscounts() (int, error) {
	conn := db.GetDb()
	var products []models.Product
	if err := conn.
		Model(&models.Product{}).
		Select("id", "price", "expiry_date", "discount_price", "manual_discount_percent").
		Where("is_active = ?", true).
		Find(&products).
		Error; err != nil {
		return 0, err
	}

	writes := 0
	for i := range products {
		p := &products[i]
		var want *float64
		if p.ManualDiscountPercent != nil {
			v := Round2(p.Price * (1 - *p.ManualDiscountPercent/100))
			want = &v
		} else {
			want = ComputeAutoDiscount(p)
		}
		if discountEqual(p.DiscountPrice, want) {
			continue
		}
		if err := conn.
			Model(&models.Product{}).
			Where("id = ?", p.ID).
			Update("discount_price", want).
			Error; err != nil {
			log.Printf("Could not update discount price for product %d: %s\n", p.ID, err.Error())
			continue
		}
		writes++
	}
	return writes, nil
}

// DeactivateExpiredProducts is the nightly sweep delisting products past
// their expiry date.
func DeactivateExpiredProducts() {
	conn := db.GetDb()
	res := conn.
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", truncateToDay(time.Now())).
		Update("is_active", false)
	if res.Error != nil {
		log.Printf("Error while delisting expired products: %s\n", res.Error.Error())
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Delisted %d expired products\n", res.RowsAffected)
	}
}
