package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"septic-booking-server/models"
	"septic-booking-server/utils"
)

// SlotLabels is the fixed, ordered set of bookable times.
var SlotLabels = []string{
	"08:00 AM",
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

// IsSlotLabel reports whether label is one of SlotLabels.
func IsSlotLabel(label string) bool {
	for _, s := range SlotLabels {
		if s == label {
			return true
		}
	}
	return false
}

// SlotCache stores computed availability per date. Get returns the version
// current at read time; Set stores slots under that version, so a result
// computed across an invalidation is never served.
type SlotCache interface {
	Get(ctx context.Context, date string) (slots []string, version string, ok bool)
	Set(ctx context.Context, date, version string, slots []string)
	Invalidate(ctx context.Context, date string)
	InvalidateAll(ctx context.Context)
}

// SlotCalculator derives open slots from technician headcount. A slot is
// open while fewer active bookings hold it than there are active technicians.
type SlotCalculator struct {
	db    *gorm.DB
	cache SlotCache
}

// NewSlotCalculator builds a calculator. cache may be nil.
func NewSlotCalculator(db *gorm.DB, cache SlotCache) *SlotCalculator {
	return &SlotCalculator{db: db, cache: cache}
}

type slotCount struct {
	Time  string
	Count int64
}

// AvailableSlots returns the open slot labels for date in label order.
func (s *SlotCalculator) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	if date == "" {
		return nil, ErrMissingDateOrTime
	}
	if _, err := utils.ParseDate(date); err != nil {
		return nil, ErrInvalidDate
	}

	var version string
	if s.cache != nil {
		var slots []string
		var ok bool
		if slots, version, ok = s.cache.Get(ctx, date); ok {
			return slots, nil
		}
	}

	db := s.db.WithContext(ctx)

	var technicians int64
	err := db.Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleTechnician, true).
		Count(&technicians).Error
	if err != nil {
		return nil, internal("count technicians", err)
	}

	available := make([]string, 0, len(SlotLabels))
	if technicians > 0 {
		var counts []slotCount
		err = db.Model(&models.Booking{}).
			Select("time, COUNT(*) AS count").
			Where("date = ? AND status IN ?", date, models.ActiveBookingStatuses).
			Group("time").
			Scan(&counts).Error
		if err != nil {
			return nil, internal("count bookings per slot", err)
		}

		taken := make(map[string]int64, len(counts))
		for _, c := range counts {
			taken[c.Time] = c.Count
		}
		for _, label := range SlotLabels {
			if taken[label] < technicians {
				available = append(available, label)
			}
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, date, version, available)
	}
	return available, nil
}

// Invalidate drops the cached result for date.
func (s *SlotCalculator) Invalidate(ctx context.Context, date string) {
	if s.cache != nil && date != "" {
		s.cache.Invalidate(ctx, date)
	}
}

// InvalidateAll drops every cached date. Called when the technician
// headcount changes.
func (s *SlotCalculator) InvalidateAll(ctx context.Context) {
	if s != nil && s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

const slotGenerationKey = "slots:generation"

// RedisSlotCache keeps slot results in redis for a short TTL. Entries carry
// the global generation and the per-date version they were computed under;
// a mismatch is a miss. Redis errors are logged and treated as a miss.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

type slotEntry struct {
	Version string   `json:"version"`
	Slots   []string `json:"slots"`
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisSlotCache {
	return &RedisSlotCache{client: client, ttl: ttl, log: log}
}

func slotCacheKey(date string) string {
	return "slots:" + date
}

func slotVersionKey(date string) string {
	return "slots:version:" + date
}

func counterValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

func (c *RedisSlotCache) Get(ctx context.Context, date string) ([]string, string, bool) {
	vals, err := c.client.MGet(ctx, slotGenerationKey, slotVersionKey(date), slotCacheKey(date)).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("date", date).Msg("slot cache read failed")
		return nil, "", false
	}
	version := counterValue(vals[0]) + "." + counterValue(vals[1])

	raw, ok := vals[2].(string)
	if !ok {
		return nil, version, false
	}
	var entry slotEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Version != version {
		return nil, version, false
	}
	if entry.Slots == nil {
		entry.Slots = []string{}
	}
	return entry.Slots, version, true
}

func (c *RedisSlotCache) Set(ctx context.Context, date, version string, slots []string) {
	if c.ttl <= 0 || version == "" {
		return
	}
	data, err := json.Marshal(slotEntry{Version: version, Slots: slots})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slotCacheKey(date), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("date", date).Msg("slot cache write failed")
	}
}

// Invalidate bumps the date version before deleting the entry, so a
// computation that started earlier cannot store under the new version.
func (c *RedisSlotCache) Invalidate(ctx context.Context, date string) {
	if c.ttl <= 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, slotVersionKey(date))
		pipe.Expire(ctx, slotVersionKey(date), 2*c.ttl)
		pipe.Del(ctx, slotCacheKey(date))
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("date", date).Msg("slot cache invalidate failed")
	}
}

func (c *RedisSlotCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, slotGenerationKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("slot cache generation bump failed")
	}
}
