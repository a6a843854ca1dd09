package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"septic-booking-server/database"
	"septic-booking-server/models"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

const (
	futureDate = "2025-06-12"
	pastDate   = "2025-06-09"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) models.User {
	t.Helper()
	user := models.User{
		FullName:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createServiceType(t *testing.T, db *gorm.DB, name string, price float64, duration int) models.ServiceType {
	t.Helper()
	st := models.ServiceType{Name: name, Price: price, Duration: duration, Status: models.ServiceTypeActive}
	require.NoError(t, db.Create(&st).Error)
	return st
}

type sentEvent struct {
	UserID uint
	Event  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) NotifyUser(userID uint, event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Event: event})
}

func (n *recordingNotifier) has(userID uint, event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.UserID == userID && e.Event == event {
			return true
		}
	}
	return false
}

// sequenceStorage returns img1, img2, ... and keeps what it was given.
type sequenceStorage struct {
	saved []string
}

func (s *sequenceStorage) Save(_ context.Context, _ uint, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved = append(s.saved, string(data))
	return fmt.Sprintf("img%d", len(s.saved)), nil
}

type bookingEnv struct {
	db          *gorm.DB
	svc         *BookingService
	tracker     *AvailabilityTracker
	notifier    *recordingNotifier
	storage     *sequenceStorage
	customer    models.User
	technician  models.User
	technician2 models.User
	admin       models.User
	pumping     models.ServiceType
	drainField  models.ServiceType
}

func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()
	db := newTestDB(t)

	env := &bookingEnv{
		db:       db,
		tracker:  NewAvailabilityTracker(db),
		notifier: &recordingNotifier{},
		storage:  &sequenceStorage{},
	}
	env.svc = NewBookingService(db, env.tracker, NewSlotCalculator(db, nil), NewCancellationPolicy(DefaultCancellationLimit),
		WithNotifier(env.notifier),
		WithProofStorage(env.storage),
		WithClock(func() time.Time { return testNow }),
	)

	env.customer = createUser(t, db, "customer", models.RoleCustomer)
	env.technician = createUser(t, db, "tech1", models.RoleTechnician)
	env.technician2 = createUser(t, db, "tech2", models.RoleTechnician)
	env.admin = createUser(t, db, "admin", models.RoleAdmin)
	env.pumping = createServiceType(t, db, "Septic Tank Pumping", 500, 2)
	env.drainField = createServiceType(t, db, "Drain Field Cleaning", 800, 3)
	return env
}

func (e *bookingEnv) book(t *testing.T, date, slot string) *models.Booking {
	t.Helper()
	booking, err := e.svc.Create(context.Background(), e.customer.ID, models.CreateBookingRequest{
		ServiceTypeID: e.pumping.ID,
		Date:          date,
		Time:          slot,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	return booking
}

func (e *bookingEnv) assigned(t *testing.T, date string, technicianID uint) *models.Booking {
	t.Helper()
	booking := e.book(t, date, "09:00 AM")
	booking, err := e.svc.Assign(context.Background(), booking.ID, technicianID)
	require.NoError(t, err)
	return booking
}

func (e *bookingEnv) load(t *testing.T, id uint) models.Booking {
	t.Helper()
	var booking models.Booking
	require.NoError(t, e.db.First(&booking, id).Error)
	return booking
}

func (e *bookingEnv) forceStatus(t *testing.T, id uint, status models.BookingStatus) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Booking{}).Where("id = ?", id).Update("status", status).Error)
}

func (e *bookingEnv) techStatus(t *testing.T, id uint) models.AvailabilityStatus {
	t.Helper()
	row, err := e.tracker.Get(context.Background(), id)
	require.NoError(t, err)
	return row.Status
}
