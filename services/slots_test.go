package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"septic-booking-server/models"
)

func insertBooking(t *testing.T, db *gorm.DB, customerID uint, date, slot string, status models.BookingStatus) {
	t.Helper()
	booking := models.Booking{
		CustomerID:    customerID,
		ServiceTypeID: 1,
		ServiceName:   "Septic Tank Pumping",
		Date:          date,
		Time:          slot,
		Duration:      2,
		Price:         500,
		PaymentStatus: models.PaymentStatusUnpaid,
		Status:        status,
	}
	require.NoError(t, db.Create(&booking).Error)
}

func TestAvailableSlotsRequiresValidDate(t *testing.T) {
	calc := NewSlotCalculator(newTestDB(t), nil)

	_, err := calc.AvailableSlots(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingDateOrTime)

	_, err = calc.AvailableSlots(context.Background(), "2025-13-40")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAvailableSlotsWithoutTechnicians(t *testing.T) {
	calc := NewSlotCalculator(newTestDB(t), nil)

	slots, err := calc.AvailableSlots(context.Background(), futureDate)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestAvailableSlotsSaturation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := createUser(t, db, "customer", models.RoleCustomer)
	createServiceType(t, db, "Septic Tank Pumping", 500, 2)
	createUser(t, db, "tech1", models.RoleTechnician)
	createUser(t, db, "tech2", models.RoleTechnician)
	idle := createUser(t, db, "tech3", models.RoleTechnician)
	require.NoError(t, db.Model(&idle).Update("is_active", false).Error)

	calc := NewSlotCalculator(db, nil)

	slots, err := calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.Equal(t, SlotLabels, slots)

	insertBooking(t, db, customer.ID, futureDate, "09:00 AM", models.BookingStatusPending)
	insertBooking(t, db, customer.ID, futureDate, "09:00 AM", models.BookingStatusConfirmed)
	insertBooking(t, db, customer.ID, futureDate, "10:00 AM", models.BookingStatusPending)
	insertBooking(t, db, customer.ID, futureDate, "10:00 AM", models.BookingStatusCancelled)
	insertBooking(t, db, customer.ID, "2025-06-13", "11:00 AM", models.BookingStatusPending)
	insertBooking(t, db, customer.ID, "2025-06-13", "11:00 AM", models.BookingStatusPending)

	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.NotContains(t, slots, "09:00 AM")
	assert.Contains(t, slots, "10:00 AM")
	assert.Contains(t, slots, "11:00 AM")
	assert.Len(t, slots, len(SlotLabels)-1)
}

func TestRedisSlotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	ctx := context.Background()
	customer := createUser(t, db, "customer", models.RoleCustomer)
	createServiceType(t, db, "Septic Tank Pumping", 500, 2)
	createUser(t, db, "tech1", models.RoleTechnician)

	cache := NewRedisSlotCache(client, time.Minute, zerolog.Nop())
	calc := NewSlotCalculator(db, cache)

	slots, err := calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	require.Len(t, slots, len(SlotLabels))
	assert.True(t, mr.Exists("slots:"+futureDate))

	insertBooking(t, db, customer.ID, futureDate, "08:00 AM", models.BookingStatusPending)

	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.Len(t, slots, len(SlotLabels), "cached result served until invalidated")

	calc.Invalidate(ctx, futureDate)
	assert.False(t, mr.Exists("slots:"+futureDate))

	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.NotContains(t, slots, "08:00 AM")

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("slots:"+futureDate))
}

func TestRedisSlotCacheTreatsFailuresAsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisSlotCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, mr.Set("slots:"+futureDate, "not json"))
	_, version, ok := cache.Get(ctx, futureDate)
	assert.False(t, ok)
	assert.Equal(t, "0.0", version)

	mr.Close()
	_, version, ok = cache.Get(ctx, futureDate)
	assert.False(t, ok)
	assert.Empty(t, version)
	cache.Set(ctx, futureDate, version, []string{"08:00 AM"})
}

func TestRedisSlotCacheDropsResultComputedAcrossInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisSlotCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, before, ok := cache.Get(ctx, futureDate)
	require.False(t, ok)

	// A booking lands while the slower reader is still computing.
	cache.Invalidate(ctx, futureDate)
	cache.Set(ctx, futureDate, before, []string{"08:00 AM", "09:00 AM"})

	_, after, ok := cache.Get(ctx, futureDate)
	assert.False(t, ok, "stale result must not be served")
	assert.NotEqual(t, before, after)

	cache.Set(ctx, futureDate, after, []string{"09:00 AM"})
	slots, _, ok := cache.Get(ctx, futureDate)
	require.True(t, ok)
	assert.Equal(t, []string{"09:00 AM"}, slots)
}

func TestSlotCacheFollowsTechnicianHeadcount(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	ctx := context.Background()
	customer := createUser(t, db, "customer", models.RoleCustomer)
	createServiceType(t, db, "Septic Tank Pumping", 500, 2)
	tech := createUser(t, db, "tech1", models.RoleTechnician)
	insertBooking(t, db, customer.ID, futureDate, "08:00 AM", models.BookingStatusPending)

	calc := NewSlotCalculator(db, NewRedisSlotCache(client, time.Minute, zerolog.Nop()))
	users := NewUserService(db, nil, zerolog.Nop(), WithSlotCalculator(calc))

	slots, err := calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	require.Len(t, slots, len(SlotLabels)-1)

	_, err = users.SetActive(ctx, tech.ID, false)
	require.NoError(t, err)
	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.Empty(t, slots, "no active technician means no open slot")

	_, err = users.SetActive(ctx, tech.ID, true)
	require.NoError(t, err)
	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.Len(t, slots, len(SlotLabels)-1)

	_, err = users.CreateUser(ctx, NewUser{
		FullName: "Second Tech",
		Email:    "tech2@example.com",
		Password: "password123",
		Role:     models.RoleTechnician,
	})
	require.NoError(t, err)
	slots, err = calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.Equal(t, SlotLabels, slots)
}

func TestBookingCreateInvalidatesSlotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	ctx := context.Background()
	customer := createUser(t, db, "customer", models.RoleCustomer)
	createUser(t, db, "tech1", models.RoleTechnician)
	service := createServiceType(t, db, "Septic Tank Pumping", 500, 2)

	calc := NewSlotCalculator(db, NewRedisSlotCache(client, time.Minute, zerolog.Nop()))
	svc := NewBookingService(db, NewAvailabilityTracker(db), calc, NewCancellationPolicy(0))

	_, err := calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)

	_, err = svc.Create(ctx, customer.ID, models.CreateBookingRequest{
		ServiceTypeID: service.ID,
		Date:          futureDate,
		Time:          "04:00 PM",
	})
	require.NoError(t, err)

	slots, err := calc.AvailableSlots(ctx, futureDate)
	require.NoError(t, err)
	assert.NotContains(t, slots, "04:00 PM")
}
