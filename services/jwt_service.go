package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"septic-booking-server/config"
	"septic-booking-server/models"
	"septic-booking-server/types"
	"septic-booking-server/utils"
)

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// JWTService issues access tokens and manages DB-backed refresh tokens.
// Refresh tokens are opaque; only their digest is stored.
type JWTService struct {
	db  *gorm.DB
	cfg config.JWTConfig
	log zerolog.Logger
	now func() time.Time
}

func NewJWTService(db *gorm.DB, cfg config.JWTConfig, log zerolog.Logger) *JWTService {
	return &JWTService{db: db, cfg: cfg, log: log, now: time.Now}
}

func (js *JWTService) AccessTTL() time.Duration {
	return time.Duration(js.cfg.ExpiryHours) * time.Hour
}

func (js *JWTService) refreshTTL() time.Duration {
	return time.Duration(js.cfg.RefreshDays) * 24 * time.Hour
}

// GenerateTokenPair generates both access and refresh tokens
func (js *JWTService) GenerateTokenPair(ctx context.Context, user *models.User, userAgent, ipAddress string) (*TokenPair, error) {
	accessToken, err := utils.GenerateToken(js.cfg.Secret, js.AccessTTL(), user.ID, string(user.Role))
	if err != nil {
		return nil, internal("sign access token", err)
	}

	raw, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, internal("generate refresh token", err)
	}
	record := models.RefreshToken{
		TokenHash: utils.HashToken(raw),
		UserID:    user.ID,
		ExpiresAt: js.now().Add(js.refreshTTL()),
		UserAgent: truncate(userAgent, 500),
		IPAddress: truncate(ipAddress, 45),
	}
	if err := js.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, internal("store refresh token", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresIn:    int64(js.AccessTTL().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccessToken validates an access token
func (js *JWTService) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	claims, err := utils.VerifyToken(js.cfg.Secret, tokenString)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued for its still-active owner.
func (js *JWTService) Refresh(ctx context.Context, raw, userAgent, ipAddress string) (*TokenPair, *models.User, error) {
	db := js.db.WithContext(ctx)

	var record models.RefreshToken
	if err := db.Where("token_hash = ?", utils.HashToken(raw)).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, internal("load refresh token", err)
	}
	if !record.IsValid(js.now()) {
		return nil, nil, ErrInvalidRefreshToken
	}

	var user models.User
	if err := db.First(&user, record.UserID).Error; err != nil {
		return nil, nil, ErrInvalidRefreshToken
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveAccount
	}

	if err := js.revoke(db, &record); err != nil {
		return nil, nil, err
	}
	pair, err := js.GenerateTokenPair(ctx, &user, userAgent, ipAddress)
	if err != nil {
		return nil, nil, err
	}
	return pair, &user, nil
}

// RevokeRefreshToken revokes a refresh token. Unknown tokens are ignored.
func (js *JWTService) RevokeRefreshToken(ctx context.Context, raw string) error {
	db := js.db.WithContext(ctx)

	var record models.RefreshToken
	err := db.Where("token_hash = ?", utils.HashToken(raw)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return internal("load refresh token", err)
	}
	return js.revoke(db, &record)
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (js *JWTService) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	err := js.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", js.now()).Error
	if err != nil {
		return internal("revoke user tokens", err)
	}
	js.log.Info().Uint("user_id", userID).Msg("all refresh tokens revoked")
	return nil
}

// CleanupExpiredTokens removes expired and revoked refresh tokens
func (js *JWTService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	res := js.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", js.now()).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, internal("delete expired tokens", res.Error)
	}
	return res.RowsAffected, nil
}

func (js *JWTService) revoke(db *gorm.DB, record *models.RefreshToken) error {
	now := js.now()
	record.RevokedAt = &now
	if err := db.Model(record).Update("revoked_at", now).Error; err != nil {
		return internal("revoke refresh token", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
