package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"trackerd/internal/auth"
	"trackerd/internal/mailer"
	"trackerd/internal/metrics"
	"trackerd/internal/models"
)

// Credentials implements signup, login, the OTP-based password reset flow,
// and the user directory lookups backing assignment UIs.
type Credentials struct {
	db     *gorm.DB
	mailer mailer.Mailer
	tokens *auth.TokenIssuer
	otpTTL time.Duration
}

// NewCredentials wires the credential service.
func NewCredentials(db *gorm.DB, m mailer.Mailer, tokens *auth.TokenIssuer, otpTTL time.Duration) *Credentials {
	if otpTTL <= 0 {
		otpTTL = 10 * time.Minute
	}
	return &Credentials{db: db, mailer: m, tokens: tokens, otpTTL: otpTTL}
}

// Signup registers a new account, storing only the bcrypt hash of the
// password. A registered email fails with ErrDuplicateEmail.
func (s *Credentials) Signup(ctx context.Context, name, email, password string) (UserView, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	switch {
	case name == "":
		return UserView{}, validationf("name is required")
	case email == "":
		return UserView{}, validationf("email is required")
	case password == "":
		return UserView{}, validationf("password is required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return UserView{}, ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserView{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return UserView{}, err
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// a concurrent signup may land between the check and the insert; the
		// unique index is the backstop
		if isUniqueViolation(err) {
			return UserView{}, ErrDuplicateEmail
		}
		return UserView{}, err
	}

	recordAudit(ctx, s.db, &user.ID, "user.signup", "user", &user.ID, nil)
	metrics.Mutations.WithLabelValues("user", "signup").Inc()
	log.Info().Str("email", email).Msg("user registered")
	return NewUserView(user), nil
}

// Login verifies the credentials and issues a bearer token. Unknown email and
// wrong password produce the identical error to avoid account enumeration.
func (s *Credentials) Login(ctx context.Context, email, password string) (string, UserView, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", UserView{}, validationf("email and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", UserView{}, ErrInvalidCredentials
		}
		return "", UserView{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", UserView{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", UserView{}, err
	}

	recordAudit(ctx, s.db, &user.ID, "user.login", "user", &user.ID, nil)
	log.Info().Str("email", email).Msg("user logged in")
	return token, NewUserView(user), nil
}

// RequestPasswordReset issues a 6-digit code to the address if an account
// exists. It reports success either way; callers cannot distinguish known
// from unknown addresses.
func (s *Credentials) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return validationf("email is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}

	otp := models.OneTimePassword{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.otpTTL),
	}
	if err := s.db.WithContext(ctx).Create(&otp).Error; err != nil {
		return err
	}

	// dispatch failures are logged but not surfaced; a 500 here would reveal
	// the address is registered
	if err := s.mailer.SendOTP(email, code); err != nil {
		log.Error().Err(err).Str("email", email).Msg("send reset code")
	}

	recordAudit(ctx, s.db, &user.ID, "user.reset_requested", "user", &user.ID, nil)
	return nil
}

// VerifyReset replaces the password if an unexpired code matches. The record
// is consumed on success, so each code works exactly once.
func (s *Credentials) VerifyReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	switch {
	case email == "" || code == "":
		return validationf("email and otp are required")
	case newPassword == "":
		return validationf("new password is required")
	}

	var otp models.OneTimePassword
	err := s.db.WithContext(ctx).
		Where("email = ? AND code = ?", email, code).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}
	if otp.Expired(time.Now()) {
		return ErrInvalidOrExpiredCode
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Delete(&otp).Error
	}); err != nil {
		return err
	}

	recordAudit(ctx, s.db, &user.ID, "user.password_reset", "user", &user.ID, nil)
	log.Info().Str("email", email).Msg("password reset")
	return nil
}

// SweepExpiredOTPs deletes expired, unconsumed codes and returns how many
// rows were removed. Run periodically; nothing else purges the table.
func (s *Credentials) SweepExpiredOTPs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.OneTimePassword{})
	return res.RowsAffected, res.Error
}

// ListUsers returns the full directory ordered by name.
func (s *Credentials) ListUsers(ctx context.Context) ([]UserView, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return newUserViews(users), nil
}

// SearchUsers matches name or email case-insensitively as a substring.
func (s *Credentials) SearchUsers(ctx context.Context, q string) ([]UserView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []UserView{}, nil
	}
	pattern := "%" + strings.ToLower(q) + "%"
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return newUserViews(users), nil
}

// FindByEmail returns the user with the exact address.
func (s *Credentials) FindByEmail(ctx context.Context, email string) (UserView, error) {
	email = normalizeEmail(email)
	if email == "" {
		return UserView{}, validationf("email is required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserView{}, ErrNotFound
		}
		return UserView{}, err
	}
	return NewUserView(user), nil
}

// FindByName returns users with the exact name, case-insensitively.
func (s *Credentials) FindByName(ctx context.Context, name string) ([]UserView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name is required")
	}
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return newUserViews(users), nil
}

// CurrentUser resolves a token subject to a fresh user row.
func (s *Credentials) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
