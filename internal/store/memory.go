package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Store. WithinTx runs fn against a copy of the
// state and swaps it in on success, so a failed trade leaves nothing behind.
// Calling Memory's own methods from inside fn deadlocks; use the q argument.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock stamps rows with now instead of the wall clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{state: newMemState(now)}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Memory) Close() error { return nil }

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)

func locked[T any](m *Memory, fn func(s *memState) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func lockedErr(m *Memory, fn func(s *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	return lockedErr(m, func(s *memState) error { return s.CreateUser(ctx, u) })
}

func (m *Memory) UserByID(ctx context.Context, id int64) (models.User, error) {
	return locked(m, func(s *memState) (models.User, error) { return s.UserByID(ctx, id) })
}

func (m *Memory) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return locked(m, func(s *memState) (models.User, error) { return s.UserByUsername(ctx, username) })
}

func (m *Memory) UpdateUser(ctx context.Context, u models.User) error {
	return lockedErr(m, func(s *memState) error { return s.UpdateUser(ctx, u) })
}

func (m *Memory) CreateProfile(ctx context.Context, userID int64, balance decimal.Decimal) error {
	return lockedErr(m, func(s *memState) error { return s.CreateProfile(ctx, userID, balance) })
}

func (m *Memory) Profile(ctx context.Context, userID int64) (models.Profile, error) {
	return locked(m, func(s *memState) (models.Profile, error) { return s.Profile(ctx, userID) })
}

func (m *Memory) LockProfile(ctx context.Context, userID int64) (models.Profile, error) {
	return locked(m, func(s *memState) (models.Profile, error) { return s.LockProfile(ctx, userID) })
}

func (m *Memory) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	return lockedErr(m, func(s *memState) error { return s.SetBalance(ctx, userID, balance) })
}

func (m *Memory) EnsurePortfolio(ctx context.Context, userID int64) (models.Portfolio, error) {
	return locked(m, func(s *memState) (models.Portfolio, error) { return s.EnsurePortfolio(ctx, userID) })
}

func (m *Memory) Portfolio(ctx context.Context, userID int64) (models.Portfolio, error) {
	return locked(m, func(s *memState) (models.Portfolio, error) { return s.Portfolio(ctx, userID) })
}

func (m *Memory) PortfolioOwners(ctx context.Context) ([]models.PortfolioOwner, error) {
	return locked(m, func(s *memState) ([]models.PortfolioOwner, error) { return s.PortfolioOwners(ctx) })
}

func (m *Memory) Holdings(ctx context.Context, portfolioID int64) ([]models.StockHolding, error) {
	return locked(m, func(s *memState) ([]models.StockHolding, error) { return s.Holdings(ctx, portfolioID) })
}

func (m *Memory) Holding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	return locked(m, func(s *memState) (models.StockHolding, error) { return s.Holding(ctx, portfolioID, symbol) })
}

func (m *Memory) LockHolding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	return locked(m, func(s *memState) (models.StockHolding, error) { return s.LockHolding(ctx, portfolioID, symbol) })
}

func (m *Memory) SaveHolding(ctx context.Context, h *models.StockHolding) error {
	return lockedErr(m, func(s *memState) error { return s.SaveHolding(ctx, h) })
}

func (m *Memory) DeleteHolding(ctx context.Context, id int64) error {
	return lockedErr(m, func(s *memState) error { return s.DeleteHolding(ctx, id) })
}

func (m *Memory) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return lockedErr(m, func(s *memState) error { return s.InsertTransaction(ctx, t) })
}

func (m *Memory) Transactions(ctx context.Context, portfolioID int64, limit int) ([]models.Transaction, error) {
	return locked(m, func(s *memState) ([]models.Transaction, error) { return s.Transactions(ctx, portfolioID, limit) })
}

func (m *Memory) FirstTransactionAt(ctx context.Context, portfolioID int64) (time.Time, error) {
	return locked(m, func(s *memState) (time.Time, error) { return s.FirstTransactionAt(ctx, portfolioID) })
}

func (m *Memory) CreateChallenge(ctx context.Context, c *models.Challenge) error {
	return lockedErr(m, func(s *memState) error { return s.CreateChallenge(ctx, c) })
}

func (m *Memory) Challenge(ctx context.Context, id int64) (models.Challenge, error) {
	return locked(m, func(s *memState) (models.Challenge, error) { return s.Challenge(ctx, id) })
}

func (m *Memory) Challenges(ctx context.Context) ([]models.Challenge, error) {
	return locked(m, func(s *memState) ([]models.Challenge, error) { return s.Challenges(ctx) })
}

func (m *Memory) EndedChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error) {
	return locked(m, func(s *memState) ([]models.Challenge, error) { return s.EndedChallenges(ctx, now) })
}

func (m *Memory) AddParticipant(ctx context.Context, p *models.ChallengeParticipant) error {
	return lockedErr(m, func(s *memState) error { return s.AddParticipant(ctx, p) })
}

func (m *Memory) Participant(ctx context.Context, challengeID, userID int64) (models.ChallengeParticipant, error) {
	return locked(m, func(s *memState) (models.ChallengeParticipant, error) { return s.Participant(ctx, challengeID, userID) })
}

func (m *Memory) Participants(ctx context.Context, challengeID int64) ([]models.ChallengeParticipant, error) {
	return locked(m, func(s *memState) ([]models.ChallengeParticipant, error) { return s.Participants(ctx, challengeID) })
}

func (m *Memory) UserChallengeIDs(ctx context.Context, userID int64) ([]int64, error) {
	return locked(m, func(s *memState) ([]int64, error) { return s.UserChallengeIDs(ctx, userID) })
}

func (m *Memory) SetFinalValue(ctx context.Context, participantID int64, value decimal.Decimal) error {
	return lockedErr(m, func(s *memState) error { return s.SetFinalValue(ctx, participantID, value) })
}

// memState implements Queries without locking. Memory guards it.
type memState struct {
	now    func() time.Time
	nextID int64

	users        map[int64]models.User
	profiles     map[int64]models.Profile
	portfolios   map[int64]models.Portfolio
	holdings     map[int64]models.StockHolding
	transactions []models.Transaction
	challenges   map[int64]models.Challenge
	participants map[int64]models.ChallengeParticipant
}

func newMemState(now func() time.Time) *memState {
	return &memState{
		now:          now,
		users:        make(map[int64]models.User),
		profiles:     make(map[int64]models.Profile),
		portfolios:   make(map[int64]models.Portfolio),
		holdings:     make(map[int64]models.StockHolding),
		challenges:   make(map[int64]models.Challenge),
		participants: make(map[int64]models.ChallengeParticipant),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		now:          s.now,
		nextID:       s.nextID,
		users:        maps.Clone(s.users),
		profiles:     maps.Clone(s.profiles),
		portfolios:   maps.Clone(s.portfolios),
		holdings:     maps.Clone(s.holdings),
		transactions: slices.Clone(s.transactions),
		challenges:   maps.Clone(s.challenges),
		participants: maps.Clone(s.participants),
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func notFound(op string) error  { return fmt.Errorf("%s: %w", op, ErrNotFound) }
func duplicate(op string) error { return fmt.Errorf("%s: %w", op, ErrDuplicate) }

func (s *memState) CreateUser(_ context.Context, u *models.User) error {
	const op = "store.memory.CreateUser"

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return duplicate(op)
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *memState) UserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, notFound("store.memory.UserByID")
	}
	return u, nil
}

func (s *memState) UserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, notFound("store.memory.UserByUsername")
}

func (s *memState) UpdateUser(_ context.Context, u models.User) error {
	const op = "store.memory.UpdateUser"

	existing, ok := s.users[u.ID]
	if !ok {
		return notFound(op)
	}
	for _, other := range s.users {
		if other.ID != u.ID && other.Username == u.Username {
			return duplicate(op)
		}
	}
	existing.Username = u.Username
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	s.users[u.ID] = existing
	return nil
}

func (s *memState) CreateProfile(_ context.Context, userID int64, balance decimal.Decimal) error {
	const op = "store.memory.CreateProfile"

	if _, ok := s.users[userID]; !ok {
		return notFound(op)
	}
	if _, ok := s.profiles[userID]; ok {
		return duplicate(op)
	}
	s.profiles[userID] = models.Profile{
		UserID:     userID,
		Balance:    models.RoundMoney(balance),
		DateJoined: s.now(),
	}
	return nil
}

func (s *memState) Profile(_ context.Context, userID int64) (models.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, notFound("store.memory.Profile")
	}
	return p, nil
}

func (s *memState) LockProfile(ctx context.Context, userID int64) (models.Profile, error) {
	return s.Profile(ctx, userID)
}

func (s *memState) SetBalance(_ context.Context, userID int64, balance decimal.Decimal) error {
	p, ok := s.profiles[userID]
	if !ok {
		return notFound("store.memory.SetBalance")
	}
	p.Balance = models.RoundMoney(balance)
	s.profiles[userID] = p
	return nil
}

func (s *memState) EnsurePortfolio(ctx context.Context, userID int64) (models.Portfolio, error) {
	if p, err := s.Portfolio(ctx, userID); err == nil {
		return p, nil
	}
	if _, ok := s.users[userID]; !ok {
		return models.Portfolio{}, notFound("store.memory.EnsurePortfolio")
	}

	now := s.now()
	p := models.Portfolio{ID: s.id(), UserID: userID, CreatedAt: now, LastUpdated: now}
	s.portfolios[p.ID] = p
	return p, nil
}

func (s *memState) Portfolio(_ context.Context, userID int64) (models.Portfolio, error) {
	for _, p := range s.portfolios {
		if p.UserID == userID {
			return p, nil
		}
	}
	return models.Portfolio{}, notFound("store.memory.Portfolio")
}

func (s *memState) PortfolioOwners(_ context.Context) ([]models.PortfolioOwner, error) {
	owners := make([]models.PortfolioOwner, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		u, ok := s.users[p.UserID]
		if !ok {
			continue
		}
		owners = append(owners, models.PortfolioOwner{
			Portfolio: p,
			Username:  u.Username,
			Balance:   s.profiles[p.UserID].Balance,
		})
	}
	slices.SortFunc(owners, func(a, b models.PortfolioOwner) int { return cmp.Compare(a.ID, b.ID) })
	return owners, nil
}

func (s *memState) Holdings(_ context.Context, portfolioID int64) ([]models.StockHolding, error) {
	out := make([]models.StockHolding, 0)
	for _, h := range s.holdings {
		if h.PortfolioID == portfolioID {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, func(a, b models.StockHolding) int {
		return cmp.Compare(a.StockSymbol, b.StockSymbol)
	})
	return out, nil
}

func (s *memState) Holding(_ context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	for _, h := range s.holdings {
		if h.PortfolioID == portfolioID && h.StockSymbol == symbol {
			return h, nil
		}
	}
	return models.StockHolding{}, notFound("store.memory.Holding")
}

func (s *memState) LockHolding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	return s.Holding(ctx, portfolioID, symbol)
}

func (s *memState) SaveHolding(_ context.Context, h *models.StockHolding) error {
	const op = "store.memory.SaveHolding"

	if h.Quantity < 0 {
		return fmt.Errorf("%s: negative quantity %d", op, h.Quantity)
	}

	if h.ID == 0 {
		if _, ok := s.portfolios[h.PortfolioID]; !ok {
			return notFound(op)
		}
		for _, existing := range s.holdings {
			if existing.PortfolioID == h.PortfolioID && existing.StockSymbol == h.StockSymbol {
				return duplicate(op)
			}
		}
		h.ID = s.id()
	} else if _, ok := s.holdings[h.ID]; !ok {
		return notFound(op)
	}

	h.AverageBuyPrice = models.RoundMoney(h.AverageBuyPrice)
	h.LastUpdated = s.now()
	s.holdings[h.ID] = *h
	return nil
}

func (s *memState) DeleteHolding(_ context.Context, id int64) error {
	if _, ok := s.holdings[id]; !ok {
		return notFound("store.memory.DeleteHolding")
	}
	delete(s.holdings, id)
	return nil
}

func (s *memState) InsertTransaction(_ context.Context, t *models.Transaction) error {
	const op = "store.memory.InsertTransaction"

	p, ok := s.portfolios[t.PortfolioID]
	if !ok {
		return notFound(op)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%s: quantity must be positive, got %d", op, t.Quantity)
	}
	if !t.TransactionType.Valid() {
		return fmt.Errorf("%s: bad transaction type %q", op, t.TransactionType)
	}

	t.ID = s.id()
	t.Price = models.RoundMoney(t.Price)
	t.Timestamp = s.now()
	s.transactions = append(s.transactions, *t)

	p.LastUpdated = t.Timestamp
	s.portfolios[p.ID] = p
	return nil
}

func (s *memState) Transactions(_ context.Context, portfolioID int64, limit int) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.PortfolioID != portfolioID {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b models.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memState) FirstTransactionAt(_ context.Context, portfolioID int64) (time.Time, error) {
	var first time.Time
	for _, t := range s.transactions {
		if t.PortfolioID != portfolioID {
			continue
		}
		if first.IsZero() || t.Timestamp.Before(first) {
			first = t.Timestamp
		}
	}
	if first.IsZero() {
		return time.Time{}, notFound("store.memory.FirstTransactionAt")
	}
	return first, nil
}

func (s *memState) CreateChallenge(_ context.Context, c *models.Challenge) error {
	const op = "store.memory.CreateChallenge"

	if _, ok := s.users[c.CreatorID]; !ok {
		return notFound(op)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("%s: end_date must be after start_date", op)
	}
	c.ID = s.id()
	c.InitialBalance = models.RoundMoney(c.InitialBalance)
	c.CreatedAt = s.now()
	s.challenges[c.ID] = *c
	return nil
}

func (s *memState) Challenge(_ context.Context, id int64) (models.Challenge, error) {
	c, ok := s.challenges[id]
	if !ok {
		return models.Challenge{}, notFound("store.memory.Challenge")
	}
	return c, nil
}

func sortChallenges(cs []models.Challenge) {
	slices.SortFunc(cs, func(a, b models.Challenge) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (s *memState) Challenges(_ context.Context) ([]models.Challenge, error) {
	out := make([]models.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		out = append(out, c)
	}
	sortChallenges(out)
	return out, nil
}

func (s *memState) EndedChallenges(_ context.Context, now time.Time) ([]models.Challenge, error) {
	pending := make(map[int64]bool)
	for _, p := range s.participants {
		if !p.FinalPortfolioValue.Valid {
			pending[p.ChallengeID] = true
		}
	}

	out := make([]models.Challenge, 0)
	for _, c := range s.challenges {
		if !c.EndDate.After(now) && pending[c.ID] {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Challenge) int {
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *memState) AddParticipant(_ context.Context, p *models.ChallengeParticipant) error {
	const op = "store.memory.AddParticipant"

	if _, ok := s.users[p.UserID]; !ok {
		return notFound(op)
	}
	if _, ok := s.challenges[p.ChallengeID]; !ok {
		return notFound(op)
	}
	for _, existing := range s.participants {
		if existing.UserID == p.UserID && existing.ChallengeID == p.ChallengeID {
			return duplicate(op)
		}
	}
	p.ID = s.id()
	p.JoinDate = s.now()
	p.FinalPortfolioValue = decimal.NullDecimal{}
	s.participants[p.ID] = *p
	return nil
}

func (s *memState) withUsername(p models.ChallengeParticipant) models.ChallengeParticipant {
	p.Username = s.users[p.UserID].Username
	return p
}

func (s *memState) Participant(_ context.Context, challengeID, userID int64) (models.ChallengeParticipant, error) {
	for _, p := range s.participants {
		if p.ChallengeID == challengeID && p.UserID == userID {
			return s.withUsername(p), nil
		}
	}
	return models.ChallengeParticipant{}, notFound("store.memory.Participant")
}

func (s *memState) Participants(_ context.Context, challengeID int64) ([]models.ChallengeParticipant, error) {
	out := make([]models.ChallengeParticipant, 0)
	for _, p := range s.participants {
		if p.ChallengeID == challengeID {
			out = append(out, s.withUsername(p))
		}
	}
	slices.SortFunc(out, func(a, b models.ChallengeParticipant) int {
		if c := a.JoinDate.Compare(b.JoinDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *memState) UserChallengeIDs(_ context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	for _, p := range s.participants {
		if p.UserID == userID {
			ids = append(ids, p.ChallengeID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *memState) SetFinalValue(_ context.Context, participantID int64, value decimal.Decimal) error {
	p, ok := s.participants[participantID]
	if !ok {
		return notFound("store.memory.SetFinalValue")
	}
	p.FinalPortfolioValue = decimal.NewNullDecimal(models.RoundMoney(value))
	s.participants[participantID] = p
	return nil
}
