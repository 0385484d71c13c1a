// Package store persists users, portfolios, trades and challenges.
//
// Postgres is the production implementation. Memory keeps everything in
// process and is used by tests and by local runs without a database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

// Queries is every read and write the services issue. Inside WithinTx the
// Lock* methods hold their rows until the transaction ends.
type Queries interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) error

	CreateProfile(ctx context.Context, userID int64, balance decimal.Decimal) error
	Profile(ctx context.Context, userID int64) (models.Profile, error)
	LockProfile(ctx context.Context, userID int64) (models.Profile, error)
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error

	EnsurePortfolio(ctx context.Context, userID int64) (models.Portfolio, error)
	Portfolio(ctx context.Context, userID int64) (models.Portfolio, error)
	PortfolioOwners(ctx context.Context) ([]models.PortfolioOwner, error)

	Holdings(ctx context.Context, portfolioID int64) ([]models.StockHolding, error)
	Holding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error)
	LockHolding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error)
	SaveHolding(ctx context.Context, h *models.StockHolding) error
	DeleteHolding(ctx context.Context, id int64) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	Transactions(ctx context.Context, portfolioID int64, limit int) ([]models.Transaction, error)
	FirstTransactionAt(ctx context.Context, portfolioID int64) (time.Time, error)

	CreateChallenge(ctx context.Context, c *models.Challenge) error
	Challenge(ctx context.Context, id int64) (models.Challenge, error)
	Challenges(ctx context.Context) ([]models.Challenge, error)
	EndedChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error)

	AddParticipant(ctx context.Context, p *models.ChallengeParticipant) error
	Participant(ctx context.Context, challengeID, userID int64) (models.ChallengeParticipant, error)
	Participants(ctx context.Context, challengeID int64) ([]models.ChallengeParticipant, error)
	UserChallengeIDs(ctx context.Context, userID int64) ([]int64, error)
	SetFinalValue(ctx context.Context, participantID int64, value decimal.Decimal) error
}

// Store is Queries plus transactions. fn's error rolls everything back.
type Store interface {
	Queries
	WithinTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
