// Package accounts registers users, signs them in and manages their profile.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen      = 8
	profileTransactions = 10
)

var (
	ErrMissingFields      = errors.New("username, email and password are required")
	ErrInvalidEmail       = errors.New("enter a valid email address")
	ErrPasswordMismatch   = errors.New("the two password fields didn't match")
	ErrPasswordTooShort   = fmt.Errorf("password must contain at least %d characters", MinPasswordLen)
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrInvalidCredentials = errors.New("please enter a correct username and password")
)

// Session is what a successful login hands back.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type Service struct {
	store          store.Store
	tokens         *Tokens
	initialBalance decimal.Decimal
	bcryptCost     int
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(st store.Store, tokens *Tokens, initialBalance decimal.Decimal, opts ...Option) *Service {
	s := &Service{
		store:          st,
		tokens:         tokens,
		initialBalance: initialBalance,
		bcryptCost:     bcrypt.DefaultCost,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the user with a funded profile and an empty portfolio.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password1 == "" {
		return models.User{}, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, ErrInvalidEmail
	}
	if req.Password1 != req.Password2 {
		return models.User{}, ErrPasswordMismatch
	}
	if len(req.Password1) < MinPasswordLen {
		return models.User{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
	}

	err = s.store.WithinTx(ctx, func(q store.Queries) error {
		if err := q.CreateUser(ctx, &u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := q.CreateProfile(ctx, u.ID, s.initialBalance); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if _, err := q.EnsurePortfolio(ctx, u.ID); err != nil {
			return fmt.Errorf("create portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (Session, error) {
	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Logout revokes the token the claims were parsed from.
func (s *Service) Logout(claims *Claims) {
	s.tokens.Revoke(claims)
}

func (s *Service) Profile(ctx context.Context, userID int64) (models.ProfilePage, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return models.ProfilePage{}, fmt.Errorf("user: %w", err)
	}
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return models.ProfilePage{}, fmt.Errorf("profile: %w", err)
	}

	page := models.ProfilePage{
		User:             u,
		Profile:          profile,
		FormattedBalance: profile.FormattedBalance(),
		Holdings:         []models.StockHolding{},
		Transactions:     []models.Transaction{},
	}

	portfolio, err := s.store.Portfolio(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return page, nil
	}
	if err != nil {
		return models.ProfilePage{}, fmt.Errorf("portfolio: %w", err)
	}
	page.Portfolio = &portfolio

	if page.Holdings, err = s.store.Holdings(ctx, portfolio.ID); err != nil {
		return models.ProfilePage{}, fmt.Errorf("holdings: %w", err)
	}
	if page.Transactions, err = s.store.Transactions(ctx, portfolio.ID, profileTransactions); err != nil {
		return models.ProfilePage{}, fmt.Errorf("transactions: %w", err)
	}
	return page, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (models.User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("user: %w", err)
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return models.User{}, ErrMissingFields
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return models.User{}, ErrInvalidEmail
		}
	}

	u.Username = username
	u.Email = email
	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)

	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
