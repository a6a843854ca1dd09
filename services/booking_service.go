package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"septic-booking-server/metrics"
	"septic-booking-server/models"
	"septic-booking-server/utils"
)

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"

	reasonDeclinedByTechnician  = "Declined by technician"
	reasonCancelledByTechnician = "Cancelled by technician"
	reasonCancelledByCustomer   = "Cancelled by customer"
	reasonCancelledByAdmin      = "Cancelled by admin"
)

const (
	actorCustomer   = "customer"
	actorTechnician = "technician"
	actorAdmin      = "admin"
)

var ErrAccessDenied = fmt.Errorf("%w: you cannot view this booking", ErrForbidden)

// ProofUpload is an image sent by the technician as proof of work.
type ProofUpload struct {
	Filename string
	Content  io.Reader
}

// BookingFilter narrows List. Zero values are ignored.
type BookingFilter struct {
	Status       string
	Date         string
	CustomerID   uint
	TechnicianID uint
}

// BookingService owns every booking status change and keeps the technician
// tracker in step with it.
type BookingService struct {
	db       *gorm.DB
	tracker  *AvailabilityTracker
	slots    *SlotCalculator
	policy   *CancellationPolicy
	storage  ProofStorage
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

type BookingOption func(*BookingService)

func WithNotifier(n Notifier) BookingOption {
	return func(s *BookingService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithProofStorage(st ProofStorage) BookingOption {
	return func(s *BookingService) { s.storage = st }
}

func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

func WithLogger(log zerolog.Logger) BookingOption {
	return func(s *BookingService) { s.log = log }
}

func NewBookingService(db *gorm.DB, tracker *AvailabilityTracker, slots *SlotCalculator, policy *CancellationPolicy, opts ...BookingOption) *BookingService {
	s := &BookingService{
		db:       db,
		tracker:  tracker,
		slots:    slots,
		policy:   policy,
		notifier: noopNotifier{},
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a slot for the customer. Price and duration are copied from
// the service type so later catalog edits do not touch this booking.
func (s *BookingService) Create(ctx context.Context, customerID uint, req models.CreateBookingRequest) (*models.Booking, error) {
	if req.Date == "" || req.Time == "" {
		return nil, ErrMissingDateOrTime
	}
	if _, err := utils.ParseDate(req.Date); err != nil {
		return nil, ErrInvalidDate
	}
	if !IsSlotLabel(req.Time) {
		return nil, ErrInvalidTimeSlot
	}

	db := s.db.WithContext(ctx)

	serviceType, err := findServiceType(db, req.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if !serviceType.IsActive() {
		return nil, ErrServiceTypeInactive
	}

	booking := models.Booking{
		CustomerID:    customerID,
		ServiceTypeID: serviceType.ID,
		ServiceName:   serviceType.Name,
		Date:          req.Date,
		Time:          req.Time,
		Duration:      serviceType.Duration,
		Price:         serviceType.Price,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentStatusUnpaid,
		Status:        models.BookingStatusPending,
		Notes:         req.Notes,
	}
	if err := db.Omit(clause.Associations).Create(&booking).Error; err != nil {
		return nil, internal("create booking", err)
	}

	metrics.IncBookingCreated()
	s.slots.Invalidate(ctx, booking.Date)
	s.notifier.NotifyUser(customerID, EventBookingCreated, &booking)
	s.log.Info().Uint("booking_id", booking.ID).Uint("customer_id", customerID).
		Str("date", booking.Date).Str("time", booking.Time).Msg("booking created")

	return s.reload(ctx, booking.ID)
}

// Assign hands the booking to a technician and restarts its workflow at
// pending. The booking write and the tracker write share one transaction.
func (s *BookingService) Assign(ctx context.Context, bookingID, technicianID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !models.CanReassign(booking.Status) {
			return ErrBookingTerminal
		}

		technician, err := findTechnician(tx, technicianID)
		if err != nil {
			return err
		}
		if !technician.IsActive {
			return ErrTechnicianInactive
		}

		if booking.IsAssignedTo(technicianID) {
			if err := s.tracker.MarkUnavailable(tx, technicianID); err != nil {
				return err
			}
		} else {
			if err := s.tracker.Reserve(tx, technicianID); err != nil {
				return err
			}
			if booking.TechnicianID != nil {
				if err := s.tracker.Release(tx, *booking.TechnicianID); err != nil {
					return err
				}
			}
		}

		booking.TechnicianID = &technicianID
		booking.Status = models.BookingStatusPending
		return saveBooking(tx, booking)
	})
	if err != nil {
		if errors.Is(err, ErrTechnicianBusy) {
			metrics.IncAssignmentConflict()
		}
		return nil, err
	}

	s.afterChange(ctx, booking, actorAdmin, EventBookingAssigned)
	s.log.Info().Uint("booking_id", bookingID).Uint("technician_id", technicianID).Msg("technician assigned")
	return s.reload(ctx, bookingID)
}

// Respond records the assigned technician accepting or declining.
func (s *BookingService) Respond(ctx context.Context, bookingID, technicianID uint, action, reason string) (*models.Booking, error) {
	if action != ActionAccept && action != ActionDecline {
		return nil, ErrInvalidAction
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.lockAssigned(tx, bookingID, technicianID)
		if err != nil {
			return err
		}

		if action == ActionAccept {
			if err := transition(booking, models.BookingStatusConfirmed); err != nil {
				return err
			}
			if err := s.tracker.MarkUnavailable(tx, technicianID); err != nil {
				return err
			}
		} else {
			if err := transition(booking, models.BookingStatusDeclined); err != nil {
				return err
			}
			booking.CancelReason = orDefault(reason, reasonDeclinedByTechnician)
			if err := s.tracker.Release(tx, technicianID); err != nil {
				return err
			}
		}
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, actorTechnician, EventBookingUpdated)
	s.log.Info().Uint("booking_id", bookingID).Uint("technician_id", technicianID).
		Str("action", action).Msg("technician responded")
	return s.reload(ctx, bookingID)
}

// UpdateStatus moves the booking along the transition table on behalf of the
// assigned technician and appends notes.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, technicianID uint, rawStatus, notes string) (*models.Booking, error) {
	status, err := models.ParseBookingStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, rawStatus)
	}

	var booking *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.lockAssigned(tx, bookingID, technicianID)
		if err != nil {
			return err
		}
		if err := transition(booking, status); err != nil {
			return err
		}
		booking.Notes = appendNote(booking.Notes, notes)

		switch status {
		case models.BookingStatusCompleted, models.BookingStatusCancelled:
			err = s.tracker.Release(tx, technicianID)
		case models.BookingStatusConfirmed:
			err = s.tracker.MarkUnavailable(tx, technicianID)
		}
		if err != nil {
			return err
		}
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, actorTechnician, EventBookingUpdated)
	return s.reload(ctx, bookingID)
}

// ChangeServiceType swaps the booked service. A log entry is appended only
// when the service name actually changes.
func (s *BookingService) ChangeServiceType(ctx context.Context, bookingID, technicianID, serviceTypeID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.lockAssigned(tx, bookingID, technicianID)
		if err != nil {
			return err
		}

		serviceType, err := findServiceType(tx, serviceTypeID)
		if err != nil {
			return err
		}

		if serviceType.Name != booking.ServiceName {
			entry := models.ServiceChangeLog{
				BookingID: booking.ID,
				From:      booking.ServiceName,
				To:        serviceType.Name,
				ChangedAt: s.now(),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return internal("append service change", err)
			}
		}

		booking.ServiceTypeID = serviceType.ID
		booking.ServiceName = serviceType.Name
		booking.Price = serviceType.Price
		booking.Duration = serviceType.Duration
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.notify(booking, EventBookingUpdated)
	return s.reload(ctx, bookingID)
}

// UploadProof replaces the proof images with the new upload and records the
// receipt number. Either part may be absent.
func (s *BookingService) UploadProof(ctx context.Context, bookingID, technicianID uint, upload *ProofUpload, receiptNumber string) (*models.Booking, error) {
	db := s.db.WithContext(ctx)

	booking, err := findBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsAssignedTo(technicianID) {
		return nil, ErrNotAssigned
	}

	if upload != nil {
		if s.storage == nil {
			return nil, internal("store proof", errors.New("no proof storage configured"))
		}
		ref, err := s.storage.Save(ctx, bookingID, upload.Filename, upload.Content)
		if err != nil {
			return nil, internal("store proof", err)
		}
		booking.ProofImages = models.StringList{ref}
	}
	if receiptNumber != "" {
		booking.ReceiptNumber = &receiptNumber
	}

	if err := saveBooking(db, booking); err != nil {
		return nil, err
	}

	s.notify(booking, EventBookingUpdated)
	return s.reload(ctx, bookingID)
}

// TechnicianCancel lets the assigned technician close a booking whose date
// has already arrived. Upcoming bookings are refused.
func (s *BookingService) TechnicianCancel(ctx context.Context, bookingID, technicianID uint, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.lockAssigned(tx, bookingID, technicianID)
		if err != nil {
			return err
		}
		if booking.Status.IsTerminal() {
			return ErrBookingTerminal
		}

		upcoming, err := s.isFutureDate(booking.Date)
		if err != nil {
			return err
		}
		if upcoming {
			return ErrFutureBookingCancel
		}

		if err := transition(booking, models.BookingStatusCancelled); err != nil {
			return err
		}
		booking.CancelReason = orDefault(reason, reasonCancelledByTechnician)
		if err := s.tracker.Release(tx, technicianID); err != nil {
			return err
		}
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, actorTechnician, EventBookingCancelled)
	return s.reload(ctx, bookingID)
}

// CustomerCancel cancels on behalf of the owning customer, subject to the
// cancellation policy. When the policy refuses, the account is deactivated
// and the booking stays as it was.
func (s *BookingService) CustomerCancel(ctx context.Context, bookingID, customerID uint) (*models.Booking, error) {
	var (
		booking     *models.Booking
		deactivated bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.CustomerID != customerID {
			return ErrNotOwner
		}
		if booking.Status.IsTerminal() {
			return ErrBookingTerminal
		}

		allowed, err := s.policy.Charge(tx, customerID)
		if err != nil {
			return err
		}
		if !allowed {
			deactivated = true
			return nil
		}

		if err := transition(booking, models.BookingStatusCancelled); err != nil {
			return err
		}
		booking.CancelReason = reasonCancelledByCustomer
		if booking.TechnicianID != nil {
			if err := s.tracker.Release(tx, *booking.TechnicianID); err != nil {
				return err
			}
		}
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	if deactivated {
		metrics.IncAccountDeactivated()
		s.notifier.NotifyUser(customerID, EventAccountSuspended, map[string]interface{}{
			"booking_id": bookingID,
			"limit":      s.policy.Limit(),
		})
		s.log.Warn().Uint("customer_id", customerID).Uint("booking_id", bookingID).
			Msg("cancellation limit reached, customer deactivated")
		return nil, ErrAccountDeactivated
	}

	s.afterChange(ctx, booking, actorCustomer, EventBookingCancelled)
	return s.reload(ctx, bookingID)
}

// SetStatus is the admin override. It still follows the transition table,
// so terminal bookings stay closed.
func (s *BookingService) SetStatus(ctx context.Context, bookingID uint, rawStatus, reason string) (*models.Booking, error) {
	status, err := models.ParseBookingStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, rawStatus)
	}

	var booking *models.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if err := transition(booking, status); err != nil {
			return err
		}

		switch status {
		case models.BookingStatusCancelled:
			booking.CancelReason = orDefault(reason, reasonCancelledByAdmin)
		case models.BookingStatusDeclined:
			if reason != "" {
				booking.CancelReason = reason
			}
		}

		if booking.TechnicianID != nil {
			switch status {
			case models.BookingStatusCompleted, models.BookingStatusCancelled, models.BookingStatusDeclined:
				err = s.tracker.Release(tx, *booking.TechnicianID)
			case models.BookingStatusConfirmed:
				err = s.tracker.MarkUnavailable(tx, *booking.TechnicianID)
			}
			if err != nil {
				return err
			}
		}
		return saveBooking(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, actorAdmin, EventBookingUpdated)
	return s.reload(ctx, bookingID)
}

// RecordPayment stores what the customer has paid so far.
func (s *BookingService) RecordPayment(ctx context.Context, bookingID uint, status models.PaymentStatus, amountPaid float64) (*models.Booking, error) {
	if !models.IsValidPaymentStatus(status) || amountPaid < 0 {
		return nil, ErrInvalidPayment
	}

	db := s.db.WithContext(ctx)
	booking, err := findBooking(db, bookingID)
	if err != nil {
		return nil, err
	}

	booking.PaymentStatus = status
	booking.AmountPaid = amountPaid
	if err := saveBooking(db, booking); err != nil {
		return nil, err
	}

	s.notify(booking, EventBookingUpdated)
	return s.reload(ctx, bookingID)
}

// Get returns the booking if viewer is staff, its customer or its technician.
func (s *BookingService) Get(ctx context.Context, bookingID uint, viewer *models.User) (*models.Booking, error) {
	booking, err := s.reload(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if viewer.IsStaff() || booking.CustomerID == viewer.ID || booking.IsAssignedTo(viewer.ID) {
		return booking, nil
	}
	return nil, ErrAccessDenied
}

// List returns bookings newest first.
func (s *BookingService) List(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	query := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Technician").
		Order("created_at DESC, id DESC")

	if filter.Status != "" {
		status, err := models.ParseBookingStatus(filter.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, filter.Status)
		}
		query = query.Where("status = ?", status)
	}
	if filter.Date != "" {
		if _, err := utils.ParseDate(filter.Date); err != nil {
			return nil, ErrInvalidDate
		}
		query = query.Where("date = ?", filter.Date)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.TechnicianID != 0 {
		query = query.Where("technician_id = ?", filter.TechnicianID)
	}

	var bookings []models.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, internal("list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) ListForCustomer(ctx context.Context, customerID uint) ([]models.Booking, error) {
	return s.List(ctx, BookingFilter{CustomerID: customerID})
}

func (s *BookingService) ListForTechnician(ctx context.Context, technicianID uint) ([]models.Booking, error) {
	return s.List(ctx, BookingFilter{TechnicianID: technicianID})
}

func (s *BookingService) reload(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Technician").
		Preload("ServiceType").
		Preload("ServiceChangeLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at, id")
		}).
		First(&booking, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, internal("load booking", err)
	}
	return &booking, nil
}

// lockAssigned loads the booking for update and checks the caller is its
// technician.
func (s *BookingService) lockAssigned(tx *gorm.DB, bookingID, technicianID uint) (*models.Booking, error) {
	booking, err := lockBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsAssignedTo(technicianID) {
		return nil, ErrNotAssigned
	}
	return booking, nil
}

func (s *BookingService) isFutureDate(date string) (bool, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return false, internal("parse booking date", err)
	}
	today, _ := utils.ParseDate(s.now().UTC().Format(utils.DateLayout))
	return day.After(today), nil
}

func (s *BookingService) afterChange(ctx context.Context, booking *models.Booking, actor, event string) {
	s.slots.Invalidate(ctx, booking.Date)
	metrics.IncBookingTransition(string(booking.Status), actor)
	s.notify(booking, event)
}

func (s *BookingService) notify(booking *models.Booking, event string) {
	s.notifier.NotifyUser(booking.CustomerID, event, booking)
	if booking.TechnicianID != nil {
		s.notifier.NotifyUser(*booking.TechnicianID, event, booking)
	}
}

func transition(booking *models.Booking, to models.BookingStatus) error {
	if !models.CanTransition(booking.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.Status, to)
	}
	booking.Status = to
	return nil
}

func lockBooking(tx *gorm.DB, bookingID uint) (*models.Booking, error) {
	return findBooking(tx.Clauses(clause.Locking{Strength: "UPDATE"}), bookingID)
}

func findBooking(db *gorm.DB, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := db.First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, internal("load booking", err)
	}
	return &booking, nil
}

func saveBooking(db *gorm.DB, booking *models.Booking) error {
	if err := db.Omit(clause.Associations).Save(booking).Error; err != nil {
		return internal("save booking", err)
	}
	return nil
}

func findServiceType(db *gorm.DB, id uint) (*models.ServiceType, error) {
	var serviceType models.ServiceType
	if err := db.First(&serviceType, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceTypeNotFound
		}
		return nil, internal("load service type", err)
	}
	return &serviceType, nil
}

func findTechnician(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnicianNotFound
		}
		return nil, internal("load technician", err)
	}
	if !user.IsTechnician() {
		return nil, ErrTechnicianNotFound
	}
	return &user, nil
}

func appendNote(existing, note string) string {
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
