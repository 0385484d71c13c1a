// Package challenges runs time-boxed trading competitions ranked by net worth.
package challenges

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/atharvakonge/stocksim/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("challenge not found")
	ErrMissingFields   = errors.New("please fill all required fields")
	ErrInvalidDates    = errors.New("end date must be after start date")
	ErrInvalidBalance  = errors.New("initial balance must be positive")
	ErrChallengeClosed = errors.New("challenge has already ended")
)

// NetWorther values a user's portfolio. ok is false when there is none.
type NetWorther interface {
	NetWorth(ctx context.Context, userID int64) (worth decimal.Decimal, ok bool, err error)
}

type Service struct {
	store  store.Store
	worth  NetWorther
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, worth NetWorther, opts ...Option) *Service {
	s := &Service{
		store:  st,
		worth:  worth,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) summarize(c models.Challenge, participants int) models.ChallengeSummary {
	return models.ChallengeSummary{
		Challenge:         c,
		Status:            c.StatusAt(s.now()),
		ParticipantsCount: participants,
		DurationDays:      c.DurationDays(),
	}
}

// Create stores a challenge and enrolls its creator.
func (s *Service) Create(ctx context.Context, creatorID int64, req models.CreateChallengeRequest) (models.ChallengeSummary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.StartDate == nil || req.EndDate == nil {
		return models.ChallengeSummary{}, ErrMissingFields
	}
	if !req.EndDate.After(*req.StartDate) {
		return models.ChallengeSummary{}, ErrInvalidDates
	}

	balance := models.DefaultChallengeBalance
	if req.InitialBalance != nil {
		balance = models.RoundMoney(*req.InitialBalance)
	}
	if !balance.IsPositive() {
		return models.ChallengeSummary{}, ErrInvalidBalance
	}

	c := models.Challenge{
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		CreatorID:      creatorID,
		StartDate:      *req.StartDate,
		EndDate:        *req.EndDate,
		InitialBalance: balance,
	}

	err := s.store.WithinTx(ctx, func(q store.Queries) error {
		if err := q.CreateChallenge(ctx, &c); err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		p := models.ChallengeParticipant{UserID: creatorID, ChallengeID: c.ID}
		if err := q.AddParticipant(ctx, &p); err != nil {
			return fmt.Errorf("enroll creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.ChallengeSummary{}, err
	}

	s.logger.Info("challenge created",
		slog.Int64("challenge_id", c.ID),
		slog.Int64("creator_id", creatorID),
		slog.Time("start", c.StartDate),
		slog.Time("end", c.EndDate),
	)
	return s.summarize(c, 1), nil
}

// List groups every challenge by its current status.
func (s *Service) List(ctx context.Context, userID int64) (models.ChallengeBoard, error) {
	all, err := s.store.Challenges(ctx)
	if err != nil {
		return models.ChallengeBoard{}, fmt.Errorf("challenges: %w", err)
	}

	board := models.ChallengeBoard{
		Active:    make([]models.ChallengeSummary, 0),
		Pending:   make([]models.ChallengeSummary, 0),
		Completed: make([]models.ChallengeSummary, 0),
	}
	for _, c := range all {
		participants, err := s.store.Participants(ctx, c.ID)
		if err != nil {
			return models.ChallengeBoard{}, fmt.Errorf("participants: %w", err)
		}

		sum := s.summarize(c, len(participants))
		switch sum.Status {
		case models.ChallengeActive:
			board.Active = append(board.Active, sum)
		case models.ChallengePending:
			board.Pending = append(board.Pending, sum)
		default:
			board.Completed = append(board.Completed, sum)
		}
	}

	board.UserChallenges, err = s.store.UserChallengeIDs(ctx, userID)
	if err != nil {
		return models.ChallengeBoard{}, fmt.Errorf("user challenges: %w", err)
	}
	return board, nil
}

func (s *Service) challenge(ctx context.Context, id int64) (models.Challenge, error) {
	c, err := s.store.Challenge(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Challenge{}, ErrNotFound
	}
	return c, err
}

// Detail ranks the participants. Completed challenges use frozen values
// where they exist; everyone else is valued live.
func (s *Service) Detail(ctx context.Context, userID, id int64) (models.ChallengeDetail, error) {
	c, err := s.challenge(ctx, id)
	if err != nil {
		return models.ChallengeDetail{}, err
	}

	participants, err := s.store.Participants(ctx, id)
	if err != nil {
		return models.ChallengeDetail{}, fmt.Errorf("participants: %w", err)
	}

	now := s.now()
	sum := s.summarize(c, len(participants))
	detail := models.ChallengeDetail{
		Challenge:    sum,
		Participants: make([]models.RankedParticipant, 0, len(participants)),
	}

	for _, p := range participants {
		value, err := s.standing(ctx, c, sum.Status, p)
		if err != nil {
			return models.ChallengeDetail{}, err
		}
		if p.UserID == userID {
			detail.IsParticipant = true
		}
		rp := models.RankedParticipant{
			UserID:         p.UserID,
			Username:       p.Username,
			JoinDate:       p.JoinDate,
			PortfolioValue: value,
		}
		if rank, ok := p.CurrentRank(c, now, participants); ok {
			rp.CurrentRank = &rank
		}
		detail.Participants = append(detail.Participants, rp)
	}

	slices.SortStableFunc(detail.Participants, func(a, b models.RankedParticipant) int {
		return b.PortfolioValue.Cmp(a.PortfolioValue)
	})
	for i := range detail.Participants {
		detail.Participants[i].Rank = i + 1
		if detail.Participants[i].UserID == userID {
			rank := i + 1
			detail.UserRank = &rank
		}
	}
	return detail, nil
}

func (s *Service) standing(ctx context.Context, c models.Challenge, status models.ChallengeStatus, p models.ChallengeParticipant) (decimal.Decimal, error) {
	if status == models.ChallengeCompleted && p.FinalPortfolioValue.Valid {
		return p.FinalPortfolioValue.Decimal, nil
	}
	return s.currentValue(ctx, c, p.UserID)
}

func (s *Service) currentValue(ctx context.Context, c models.Challenge, userID int64) (decimal.Decimal, error) {
	worth, ok, err := s.worth.NetWorth(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("net worth of user %d: %w", userID, err)
	}
	if !ok {
		return c.InitialBalance, nil
	}
	return worth, nil
}

// Join enrolls userID. Joining twice is a no-op reported by joined=false.
func (s *Service) Join(ctx context.Context, userID, id int64) (c models.Challenge, joined bool, err error) {
	c, err = s.challenge(ctx, id)
	if err != nil {
		return models.Challenge{}, false, err
	}
	if c.StatusAt(s.now()) == models.ChallengeCompleted {
		return c, false, ErrChallengeClosed
	}

	p := models.ChallengeParticipant{UserID: userID, ChallengeID: id}
	err = s.store.AddParticipant(ctx, &p)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return c, false, nil
	case err != nil:
		return c, false, fmt.Errorf("add participant: %w", err)
	}

	s.logger.Info("challenge joined", slog.Int64("challenge_id", id), slog.Int64("user_id", userID))
	return c, true, nil
}

// Finalize freezes the final value of every participant of an ended
// challenge who has none yet. It returns how many it froze.
func (s *Service) Finalize(ctx context.Context) (int, error) {
	ended, err := s.store.EndedChallenges(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("ended challenges: %w", err)
	}

	frozen := 0
	for _, c := range ended {
		participants, err := s.store.Participants(ctx, c.ID)
		if err != nil {
			return frozen, fmt.Errorf("participants: %w", err)
		}
		for _, p := range participants {
			if p.FinalPortfolioValue.Valid {
				continue
			}
			value, err := s.currentValue(ctx, c, p.UserID)
			if err != nil {
				return frozen, err
			}
			if err := s.store.SetFinalValue(ctx, p.ID, value); err != nil {
				return frozen, fmt.Errorf("set final value: %w", err)
			}
			frozen++
		}
		s.logger.Info("challenge finalized", slog.Int64("challenge_id", c.ID), slog.Int("participants", len(participants)))
	}
	return frozen, nil
}
