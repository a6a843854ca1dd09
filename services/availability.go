package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"septic-booking-server/models"
)

// AvailabilityTracker owns the technician_statuses table. The mutating
// methods take the caller's transaction so the booking write and the status
// write commit together.
type AvailabilityTracker struct {
	db *gorm.DB
}

func NewAvailabilityTracker(db *gorm.DB) *AvailabilityTracker {
	return &AvailabilityTracker{db: db}
}

// TechnicianAvailability is one technician joined with their status row.
type TechnicianAvailability struct {
	TechnicianID uint                      `json:"technician_id"`
	FullName     string                    `json:"full_name"`
	Email        string                    `json:"email"`
	IsActive     bool                      `json:"is_active"`
	Status       models.AvailabilityStatus `json:"status"`
}

// Reserve flips the technician from available to unavailable. The row is
// created lazily; the flip is a compare-and-swap so two concurrent
// assignments cannot both win.
func (t *AvailabilityTracker) Reserve(tx *gorm.DB, technicianID uint) error {
	row := models.TechnicianStatus{
		TechnicianID: technicianID,
		Status:       models.TechnicianAvailable,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "technician_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return internal("create technician status", err)
	}

	res := tx.Model(&models.TechnicianStatus{}).
		Where("technician_id = ? AND status = ?", technicianID, models.TechnicianAvailable).
		Update("status", models.TechnicianUnavailable)
	if res.Error != nil {
		return internal("reserve technician", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTechnicianBusy
	}
	return nil
}

// MarkUnavailable sets the technician unavailable, creating the row if needed.
func (t *AvailabilityTracker) MarkUnavailable(tx *gorm.DB, technicianID uint) error {
	if err := upsertStatus(tx, technicianID, models.TechnicianUnavailable); err != nil {
		return internal("mark technician unavailable", err)
	}
	return nil
}

// Release sets the technician available. A missing row is left missing.
func (t *AvailabilityTracker) Release(tx *gorm.DB, technicianID uint) error {
	err := tx.Model(&models.TechnicianStatus{}).
		Where("technician_id = ?", technicianID).
		Update("status", models.TechnicianAvailable).Error
	if err != nil {
		return internal("release technician", err)
	}
	return nil
}

// Set is the admin override.
func (t *AvailabilityTracker) Set(ctx context.Context, technicianID uint, status models.AvailabilityStatus) (*models.TechnicianStatus, error) {
	db := t.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, technicianID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnicianNotFound
		}
		return nil, internal("load technician", err)
	}
	if !user.IsTechnician() {
		return nil, ErrTechnicianNotFound
	}

	if err := upsertStatus(db, technicianID, status); err != nil {
		return nil, internal("set technician status", err)
	}
	return t.Get(ctx, technicianID)
}

// Get returns the status row, or an unsaved available row when the
// technician has never been assigned.
func (t *AvailabilityTracker) Get(ctx context.Context, technicianID uint) (*models.TechnicianStatus, error) {
	var row models.TechnicianStatus
	err := t.db.WithContext(ctx).Where("technician_id = ?", technicianID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.TechnicianStatus{TechnicianID: technicianID, Status: models.TechnicianAvailable}, nil
	}
	if err != nil {
		return nil, internal("load technician status", err)
	}
	return &row, nil
}

// List returns every technician with their current availability.
func (t *AvailabilityTracker) List(ctx context.Context) ([]TechnicianAvailability, error) {
	var out []TechnicianAvailability
	err := t.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id AS technician_id, users.full_name, users.email, users.is_active, "+
			"COALESCE(technician_statuses.status, 'available') AS status").
		Joins("LEFT JOIN technician_statuses ON technician_statuses.technician_id = users.id").
		Where("users.role = ?", models.RoleTechnician).
		Order("users.id").
		Scan(&out).Error
	if err != nil {
		return nil, internal("list technicians", err)
	}
	return out, nil
}

func upsertStatus(db *gorm.DB, technicianID uint, status models.AvailabilityStatus) error {
	row := models.TechnicianStatus{TechnicianID: technicianID, Status: status}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "technician_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error
}
