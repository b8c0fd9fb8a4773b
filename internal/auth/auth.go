// Package auth implements account registration, login and password
// recovery on top of the store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/cardroomlabs/cardroom/internal/store"
)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSuspended          = errors.New("account is suspended")
	ErrUsernameTaken      = errors.New("username or email already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrInvalidInput       = errors.New("invalid registration details")
	ErrWrongAnswer        = errors.New("security answer does not match")
)

// SecurityQuestions are the recovery questions offered at registration,
// referenced by index.
var SecurityQuestions = []string{
	"What was the name of your first pet?",
	"What city were you born in?",
	"What was the make of your first car?",
	"What is your mother's maiden name?",
	"What was the name of your primary school?",
}

// Service performs account operations.
type Service struct {
	db     *store.DB
	logger *log.Logger
}

// New creates an auth service.
func New(db *store.DB, logger *log.Logger) *Service {
	return &Service{db: db, logger: logger.WithPrefix("auth")}
}

// Register creates an account. The password and the security answer are
// stored as salted argon2id hashes; the answer is normalised first so
// capitalisation and spacing do not lock users out.
func (s *Service) Register(ctx context.Context, username, email, password string, questionIdx int, answer string) (store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || !strings.Contains(email, "@") {
		return store.User{}, ErrInvalidInput
	}
	if questionIdx < 0 || questionIdx >= len(SecurityQuestions) || strings.TrimSpace(answer) == "" {
		return store.User{}, ErrInvalidInput
	}
	if len(password) < MinPasswordLen {
		return store.User{}, ErrWeakPassword
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return store.User{}, err
	}
	answerHash, err := HashPassword(normalizeAnswer(answer))
	if err != nil {
		return store.User{}, err
	}

	u, err := s.db.CreateUser(ctx, store.User{
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		SecurityQuestion:   questionIdx,
		SecurityAnswerHash: answerHash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return store.User{}, ErrUsernameTaken
	}
	if err != nil {
		return store.User{}, err
	}
	s.logger.Info("user registered", "user", username, "id", u.ID)
	return u, nil
}

// Login verifies credentials by email and returns the account. Suspended
// accounts cannot log in even with the right password.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, error) {
	u, err := s.db.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}
	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return store.User{}, ErrInvalidCredentials
	}
	if u.Banned {
		return store.User{}, ErrSuspended
	}
	return u, nil
}

// SecurityQuestion returns the recovery question registered for a user.
func (s *Service) SecurityQuestion(ctx context.Context, email string) (string, error) {
	u, err := s.db.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	return SecurityQuestions[u.SecurityQuestion], nil
}

// ResetPassword sets a new password after verifying the security answer.
func (s *Service) ResetPassword(ctx context.Context, email, answer, newPassword string) error {
	u, err := s.db.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	ok, err := VerifyPassword(normalizeAnswer(answer), u.SecurityAnswerHash)
	if err != nil || !ok {
		return ErrWrongAnswer
	}
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, u.ID); err != nil {
		return err
	}
	s.logger.Info("password reset", "user", u.Username)
	return nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
