package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthConfig holds the session settings.
type AuthConfig struct {
	Secret      []byte
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	HashCost    int
}

// Auth registers users and manages their sessions.
type Auth struct {
	repo   repository.Repository
	log    *logrus.Logger
	ledger *Ledger
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuth(repo repository.Repository, log *logrus.Logger, ledger *Ledger, cfg AuthConfig, now func() time.Time) *Auth {
	return &Auth{repo: repo, log: log, ledger: ledger, cfg: cfg, now: now}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

// Validate checks the sign-up form.
func (in *RegisterInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FirstName == "" {
		return models.Invalid("firstName", "is required")
	}
	if in.LastName == "" {
		return models.Invalid("lastName", "is required")
	}
	if !emailPattern.MatchString(in.Email) {
		return models.Invalid("email", "is not a valid address")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.Invalid("email", "is not a valid address")
	}
	if len([]rune(in.Password)) < minPasswordLength {
		return models.ErrWeakPassword
	}
	return nil
}

// Register creates a user with a hashed password and the starter dataset
func (a *Auth) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hashedPassword),
	}
	user.ApplyDefaults()

	err = a.repo.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := a.repo.FindUserByEmail(ctx, user.Email); err == nil {
			return models.ErrDuplicateEmail
		} else if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if err := a.repo.CreateUser(ctx, user); err != nil {
			return err
		}
		return a.createInitialData(ctx, user.ID, a.now())
	})
	if err != nil {
		return nil, err
	}

	a.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// LoginResult is a signed session token and its owner.
type LoginResult struct {
	Token   string
	User    *models.User
	Session *models.Session
}

// Login checks the credentials and opens a session. Five consecutive
// failures lock the account for 15 minutes.
func (a *Auth) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	now := a.now()
	var user *models.User
	var session *models.Session
	var mismatch bool

	err := a.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = a.repo.LockUserByEmail(ctx, strings.TrimSpace(email))
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidCredentials
		}
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}
		if user.Locked(now) {
			return models.ErrAccountLocked
		}
		if user.LockedUntil != nil {
			user.LockedUntil = nil
			user.FailedAttempts = 0
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			// Keep the counter: the transaction must still commit.
			mismatch = true
			user.FailedAttempts++
			if user.FailedAttempts >= maxFailedAttempts {
				until := now.Add(lockDuration)
				user.LockedUntil = &until
			}
			return a.repo.UpdateUser(ctx, user)
		}

		user.FailedAttempts = 0
		user.LastLogin = &now
		user.LastActivity = &now
		if err := a.repo.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		session = &models.Session{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(a.cfg.SessionTTL),
		}
		if err := a.repo.CreateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrAccountLocked) {
			a.log.Warnf("Login attempt on locked account: %s", email)
		}
		return nil, err
	}
	if mismatch {
		if user.LockedUntil != nil {
			a.log.Warnf("Account locked after %d failed attempts: %s", user.FailedAttempts, user.Email)
		}
		return nil, models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		ID:        session.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	})
	tokenString, err := token.SignedString(a.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	a.log.Infof("User logged in: %s", user.Email)
	return &LoginResult{Token: tokenString, User: user, Session: session}, nil
}

// Verify checks a token and its session, refreshing the session's activity.
// Sessions idle for longer than the idle timeout are deleted.
func (a *Auth) Verify(ctx context.Context, token string) (*models.User, *models.Session, error) {
	now := a.now()
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidSession, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, nil, models.ErrInvalidSession
	}
	session, err := a.repo.FindSession(ctx, userID, claims.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, models.ErrInvalidSession
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}

	if now.Sub(session.LastActivity) > a.cfg.IdleTimeout || !now.Before(session.ExpiresAt) {
		if err := a.repo.DeleteSession(ctx, userID, session.ID); err != nil {
			a.log.Errorf("Failed to delete idle session %s: %v", session.ID, err)
		}
		return nil, nil, models.ErrInvalidSession
	}

	if err := a.repo.TouchSession(ctx, userID, session.ID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to touch session: %w", err)
	}
	session.LastActivity = now

	user, err := a.repo.FindUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, models.ErrInvalidSession
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, session, nil
}

// Logout ends a session. Ending an unknown session is not an error.
func (a *Auth) Logout(ctx context.Context, userID int64, sessionID string) error {
	if err := a.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	a.log.Debugf("Session %s closed", sessionID)
	return nil
}

// PurgeIdleSessions deletes sessions past the idle timeout or their expiry.
func (a *Auth) PurgeIdleSessions(ctx context.Context) (int64, error) {
	now := a.now()
	n, err := a.repo.DeleteIdleSessions(ctx, now.Add(-a.cfg.IdleTimeout), now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		a.log.Infof("Purged %d idle sessions", n)
	}
	return n, nil
}
