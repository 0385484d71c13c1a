package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChallengeStatus is derived from the clock, never stored.
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
)

// DefaultChallengeBalance is used when a challenge is created without one.
var DefaultChallengeBalance = decimal.NewFromInt(100000)

type Challenge struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CreatorID      int64           `json:"creator_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StatusAt is pending before start, active in [start, end) and completed from end on.
func (c Challenge) StatusAt(now time.Time) ChallengeStatus {
	switch {
	case now.Before(c.StartDate):
		return ChallengePending
	case now.Before(c.EndDate):
		return ChallengeActive
	default:
		return ChallengeCompleted
	}
}

// DurationDays counts whole days between start and end.
func (c Challenge) DurationDays() int {
	return int(c.EndDate.Sub(c.StartDate) / (24 * time.Hour))
}

type ChallengeParticipant struct {
	ID                  int64               `json:"id"`
	UserID              int64               `json:"user_id"`
	ChallengeID         int64               `json:"challenge_id"`
	Username            string              `json:"username"`
	JoinDate            time.Time           `json:"join_date"`
	FinalPortfolioValue decimal.NullDecimal `json:"final_portfolio_value"`
}

// CurrentRank ranks p among the frozen values of a completed challenge.
// ok is false while the challenge runs or before p's value is frozen.
func (p ChallengeParticipant) CurrentRank(c Challenge, now time.Time, all []ChallengeParticipant) (rank int, ok bool) {
	if c.StatusAt(now) != ChallengeCompleted || !p.FinalPortfolioValue.Valid {
		return 0, false
	}
	better := 0
	for _, other := range all {
		if other.ChallengeID != p.ChallengeID || !other.FinalPortfolioValue.Valid {
			continue
		}
		if other.FinalPortfolioValue.Decimal.GreaterThan(p.FinalPortfolioValue.Decimal) {
			better++
		}
	}
	return better + 1, true
}

// ChallengeSummary is a challenge as listed, with its derived fields.
type ChallengeSummary struct {
	Challenge
	Status            ChallengeStatus `json:"status"`
	ParticipantsCount int             `json:"participants_count"`
	DurationDays      int             `json:"duration_days"`
}

// ChallengeBoard groups challenges by status for the listing page.
type ChallengeBoard struct {
	Active         []ChallengeSummary `json:"active_challenges"`
	Pending        []ChallengeSummary `json:"pending_challenges"`
	Completed      []ChallengeSummary `json:"completed_challenges"`
	UserChallenges []int64            `json:"user_challenges"`
}

// RankedParticipant is one row of a challenge standings table.
type RankedParticipant struct {
	Rank           int             `json:"rank"`
	UserID         int64           `json:"user_id"`
	Username       string          `json:"username"`
	JoinDate       time.Time       `json:"join_date"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	// CurrentRank is the standing among frozen results, set once the challenge
	// has completed and this participant's value is frozen.
	CurrentRank *int `json:"current_rank,omitempty"`
}

type ChallengeDetail struct {
	Challenge     ChallengeSummary    `json:"challenge"`
	IsParticipant bool                `json:"is_participant"`
	Participants  []RankedParticipant `json:"participants"`
	UserRank      *int                `json:"user_rank"`
}
