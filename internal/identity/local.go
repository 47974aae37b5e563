package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTTL = time.Hour

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier func(ctx context.Context, email, token string)

// Local keeps accounts in the users table with bcrypt password hashes.
type Local struct {
	db     *gorm.DB
	notify ResetNotifier
	now    func() time.Time
}

// LogNotifier records reset requests in the log. The secret part of the
// token is only written, at debug level, when showToken is set.
func LogNotifier(showToken bool) ResetNotifier {
	return func(ctx context.Context, email, token string) {
		id, _, _ := strings.Cut(token, ".")
		slog.InfoContext(ctx, "password reset requested", "email", email, "user_id", id)
		if showToken {
			slog.DebugContext(ctx, "password reset token", "email", email, "token", token)
		}
	}
}

// NewLocal returns a provider over db. A nil notifier is LogNotifier(false).
func NewLocal(db *gorm.DB, notify ResetNotifier) *Local {
	if notify == nil {
		notify = LogNotifier(false)
	}
	return &Local{db: db, notify: notify, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Local) SignIn(ctx context.Context, email, password string) Result {
	var user models.User
	if err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return fail(i18n.T("signin_invalid"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return fail(i18n.T("signin_invalid"))
	}
	return ok(i18n.T("signin_ok"), user.SessionID())
}

func (p *Local) SignUp(ctx context.Context, email, password, name string) Result {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return fail(i18n.T("signup_missing"))
	}
	var taken int64
	if err := p.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		slog.ErrorContext(ctx, "signup lookup failed", "err", err)
		return fail(i18n.T("internal_error"))
	}
	if taken > 0 {
		return fail(i18n.T("signup_exists"))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(i18n.T("internal_error"))
	}
	user := models.User{Email: email, Password: string(hashed), Name: strings.TrimSpace(name)}
	if err := p.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return fail(i18n.T("signup_exists"))
		}
		slog.ErrorContext(ctx, "signup failed", "err", err)
		return fail(i18n.T("internal_error"))
	}
	return ok(i18n.T("signup_ok"), user.SessionID())
}

// SignOut has nothing to revoke server-side; the caller clears the cookie.
func (p *Local) SignOut(context.Context, string) Result {
	return ok(i18n.T("signout_ok"), "")
}

// ResetPassword issues a one-hour token. The response is the same whether
// or not the email is registered.
func (p *Local) ResetPassword(ctx context.Context, email string) Result {
	email = normalizeEmail(email)
	var user models.User
	if err := p.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return ok(i18n.T("reset_sent"), "")
	}
	token := uuid.NewString()
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fail(i18n.T("internal_error"))
	}
	expires := p.now().Add(resetTTL)
	err = p.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"reset_token_hash": string(hashed),
		"reset_expires_at": expires,
	}).Error
	if err != nil {
		return fail(i18n.T("internal_error"))
	}
	p.notify(ctx, email, strconv.FormatUint(uint64(user.ID), 10)+"."+token)
	return ok(i18n.T("reset_sent"), "")
}

// ConfirmReset sets a new password when token matches an unexpired reset.
// Tokens have the form "<userID>.<secret>".
func (p *Local) ConfirmReset(ctx context.Context, token, newPassword string) Result {
	idPart, secret, found := strings.Cut(token, ".")
	id, err := strconv.ParseUint(idPart, 10, 64)
	if !found || err != nil || secret == "" || newPassword == "" {
		return fail(i18n.T("reset_invalid"))
	}
	var user models.User
	if err := p.db.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		return fail(i18n.T("reset_invalid"))
	}
	if user.ResetTokenHash == "" || user.ResetExpiresAt == nil || p.now().After(*user.ResetExpiresAt) {
		return fail(i18n.T("reset_invalid"))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.ResetTokenHash), []byte(secret)) != nil {
		return fail(i18n.T("reset_invalid"))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fail(i18n.T("internal_error"))
	}
	err = p.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password":         string(hashed),
		"reset_token_hash": "",
		"reset_expires_at": nil,
	}).Error
	if err != nil {
		return fail(i18n.T("internal_error"))
	}
	return ok(i18n.T("reset_done"), user.SessionID())
}

// Exists reports whether a "local:<id>" session still has an account.
func (p *Local) Exists(ctx context.Context, userID string) bool {
	id, err := parseLocalID(userID)
	if err != nil {
		return false
	}
	var count int64
	if err := p.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		// A failed lookup keeps the session.
		slog.WarnContext(ctx, "session user lookup failed", "user", userID, "err", err)
		return true
	}
	return count > 0
}

// isUniqueViolation reports whether err is a unique constraint failure from
// the database, for sessions opened with or without TranslateError.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func parseLocalID(userID string) (uint, error) {
	raw, found := strings.CutPrefix(userID, "local:")
	if !found {
		return 0, ErrUnknownUser
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrUnknownUser, err)
	}
	return uint(id), nil
}
