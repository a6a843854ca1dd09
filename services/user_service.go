package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"septic-booking-server/models"
	"septic-booking-server/utils"
)

const minPasswordLength = 8

var (
	ErrEmailTaken   = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrInvalidEmail = fmt.Errorf("%w: email address is invalid", ErrValidation)
	ErrWeakPassword = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	ErrInvalidRole  = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrMissingName  = fmt.Errorf("%w: full name is required", ErrValidation)
)

// NewUser is the input for Register and CreateUser.
type NewUser struct {
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	PhoneNumber string          `json:"phone_number"`
	Address     string          `json:"address"`
	Role        models.UserRole `json:"role"`
}

// UserService covers account creation, login checks and admin account
// management.
type UserService struct {
	db    *gorm.DB
	jwt   *JWTService
	slots *SlotCalculator
	log   zerolog.Logger
}

type UserOption func(*UserService)

// WithSlotCalculator drops cached slot results whenever the active
// technician headcount changes.
func WithSlotCalculator(slots *SlotCalculator) UserOption {
	return func(s *UserService) { s.slots = slots }
}

func NewUserService(db *gorm.DB, jwt *JWTService, log zerolog.Logger, opts ...UserOption) *UserService {
	s := &UserService{db: db, jwt: jwt, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a customer account.
func (s *UserService) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in.Role = models.RoleCustomer
	return s.create(ctx, in)
}

// CreateUser lets an admin create an account of any role.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleTechnician
	}
	if !models.IsValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	if user.IsTechnician() {
		s.slots.InvalidateAll(ctx)
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, in NewUser) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" {
		return nil, ErrMissingName
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, internal("check email", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, internal("create user", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return &user, nil
}

// Authenticate checks credentials. Deactivated accounts cannot log in.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internal("load user", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return &user, nil
}

// List returns users, optionally filtered by role.
func (s *UserService) List(ctx context.Context, role string) ([]models.User, error) {
	query := s.db.WithContext(ctx).Order("id")
	if role != "" {
		if !models.IsValidRole(models.UserRole(role)) {
			return nil, ErrInvalidRole
		}
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

// SetActive activates or suspends an account. Activation clears the
// cancellation count; suspension revokes refresh tokens.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internal("load user", err)
	}

	updates := map[string]interface{}{"is_active": active}
	if active {
		updates["cancellation_count"] = 0
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, internal("update user", err)
	}
	user.IsActive = active
	if active {
		user.CancellationCount = 0
	}

	if user.IsTechnician() {
		s.slots.InvalidateAll(ctx)
	}

	if !active && s.jwt != nil {
		if err := s.jwt.RevokeAllUserTokens(ctx, userID); err != nil {
			return nil, err
		}
	}

	s.log.Info().Uint("user_id", userID).Bool("active", active).Msg("user activation changed")
	return &user, nil
}
