package services

import (
	"gorm.io/gorm"

	"septic-booking-server/models"
)

// DefaultCancellationLimit is how many customer cancellations succeed before
// the next attempt suspends the account.
const DefaultCancellationLimit = 3

// CancellationPolicy bounds customer-initiated cancellations.
type CancellationPolicy struct {
	limit int
}

func NewCancellationPolicy(limit int) *CancellationPolicy {
	if limit < 1 {
		limit = DefaultCancellationLimit
	}
	return &CancellationPolicy{limit: limit}
}

func (p *CancellationPolicy) Limit() int {
	return p.limit
}

// Charge counts one cancellation against the customer inside tx. The count
// is checked before it is incremented, so exactly limit cancellations are
// granted. When the customer is already at the limit the account is
// deactivated in tx and allowed is false; the caller must commit tx and
// refuse the cancellation.
func (p *CancellationPolicy) Charge(tx *gorm.DB, customerID uint) (allowed bool, err error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND cancellation_count < ?", customerID, p.limit).
		UpdateColumn("cancellation_count", gorm.Expr("cancellation_count + 1"))
	if res.Error != nil {
		return false, internal("increment cancellation count", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	err = tx.Model(&models.User{}).
		Where("id = ?", customerID).
		Update("is_active", false).Error
	if err != nil {
		return false, internal("deactivate customer", err)
	}
	return false, nil
}
