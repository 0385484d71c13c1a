package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Postgres struct {
	queries
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{queries: queries{q: db}, db: db}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(q Queries) error) error {
	const op = "store.postgres.WithinTx"

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

type queries struct {
	q querier
}

// wrap maps driver errors onto the package sentinels and prefixes op.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *queries) CreateUser(ctx context.Context, u *models.User) error {
	const op = "store.postgres.CreateUser"

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *queries) UserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "store.postgres.UserByID"

	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, wrap(op, err)
	}
	return u, nil
}

func (s *queries) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "store.postgres.UserByUsername"

	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return models.User{}, wrap(op, err)
	}
	return u, nil
}

func (s *queries) UpdateUser(ctx context.Context, u models.User) error {
	const op = "store.postgres.UpdateUser"

	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2, first_name = $3, last_name = $4
		WHERE id = $5
	`, u.Username, u.Email, u.FirstName, u.LastName, u.ID)
	if err != nil {
		return wrap(op, err)
	}
	return expectRow(op, res)
}

func expectRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *queries) CreateProfile(ctx context.Context, userID int64, balance decimal.Decimal) error {
	const op = "store.postgres.CreateProfile"

	if _, err := s.q.ExecContext(ctx,
		"INSERT INTO profiles (user_id, balance) VALUES ($1, $2)",
		userID, balance,
	); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *queries) Profile(ctx context.Context, userID int64) (models.Profile, error) {
	const op = "store.postgres.Profile"
	return s.profile(ctx, op, "SELECT user_id, balance, date_joined FROM profiles WHERE user_id = $1", userID)
}

func (s *queries) LockProfile(ctx context.Context, userID int64) (models.Profile, error) {
	const op = "store.postgres.LockProfile"
	return s.profile(ctx, op, "SELECT user_id, balance, date_joined FROM profiles WHERE user_id = $1 FOR UPDATE", userID)
}

func (s *queries) profile(ctx context.Context, op, query string, userID int64) (models.Profile, error) {
	var p models.Profile
	if err := s.q.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Balance, &p.DateJoined); err != nil {
		return models.Profile{}, wrap(op, err)
	}
	return p, nil
}

func (s *queries) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	const op = "store.postgres.SetBalance"

	res, err := s.q.ExecContext(ctx, "UPDATE profiles SET balance = $1 WHERE user_id = $2", balance, userID)
	if err != nil {
		return wrap(op, err)
	}
	return expectRow(op, res)
}

func (s *queries) EnsurePortfolio(ctx context.Context, userID int64) (models.Portfolio, error) {
	const op = "store.postgres.EnsurePortfolio"

	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO portfolios (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return models.Portfolio{}, wrap(op, err)
	}
	return s.Portfolio(ctx, userID)
}

func (s *queries) Portfolio(ctx context.Context, userID int64) (models.Portfolio, error) {
	const op = "store.postgres.Portfolio"

	var p models.Portfolio
	err := s.q.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, last_updated FROM portfolios WHERE user_id = $1",
		userID,
	).Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.LastUpdated)
	if err != nil {
		return models.Portfolio{}, wrap(op, err)
	}
	return p, nil
}

func (s *queries) PortfolioOwners(ctx context.Context) ([]models.PortfolioOwner, error) {
	const op = "store.postgres.PortfolioOwners"

	rows, err := s.q.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.created_at, p.last_updated, u.username, COALESCE(pr.balance, 0)
		FROM portfolios p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN profiles pr ON pr.user_id = p.user_id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	owners := make([]models.PortfolioOwner, 0)
	for rows.Next() {
		var o models.PortfolioOwner
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.LastUpdated, &o.Username, &o.Balance); err != nil {
			return nil, wrap(op, err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return owners, nil
}

const holdingColumns = `id, portfolio_id, stock_symbol, stock_name, quantity, average_buy_price, last_updated`

func scanHolding(row interface{ Scan(...any) error }) (models.StockHolding, error) {
	var h models.StockHolding
	err := row.Scan(&h.ID, &h.PortfolioID, &h.StockSymbol, &h.StockName, &h.Quantity, &h.AverageBuyPrice, &h.LastUpdated)
	return h, err
}

func (s *queries) Holdings(ctx context.Context, portfolioID int64) ([]models.StockHolding, error) {
	const op = "store.postgres.Holdings"

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+holdingColumns+`
		FROM stock_holdings
		WHERE portfolio_id = $1
		ORDER BY stock_symbol
	`, portfolioID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	holdings := make([]models.StockHolding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return holdings, nil
}

func (s *queries) Holding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	const op = "store.postgres.Holding"

	h, err := scanHolding(s.q.QueryRowContext(ctx,
		`SELECT `+holdingColumns+` FROM stock_holdings WHERE portfolio_id = $1 AND stock_symbol = $2`,
		portfolioID, symbol,
	))
	if err != nil {
		return models.StockHolding{}, wrap(op, err)
	}
	return h, nil
}

func (s *queries) LockHolding(ctx context.Context, portfolioID int64, symbol string) (models.StockHolding, error) {
	const op = "store.postgres.LockHolding"

	h, err := scanHolding(s.q.QueryRowContext(ctx,
		`SELECT `+holdingColumns+` FROM stock_holdings WHERE portfolio_id = $1 AND stock_symbol = $2 FOR UPDATE`,
		portfolioID, symbol,
	))
	if err != nil {
		return models.StockHolding{}, wrap(op, err)
	}
	return h, nil
}

func (s *queries) SaveHolding(ctx context.Context, h *models.StockHolding) error {
	const op = "store.postgres.SaveHolding"

	if h.ID == 0 {
		err := s.q.QueryRowContext(ctx, `
			INSERT INTO stock_holdings (portfolio_id, stock_symbol, stock_name, quantity, average_buy_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, last_updated
		`, h.PortfolioID, h.StockSymbol, h.StockName, h.Quantity, h.AverageBuyPrice).Scan(&h.ID, &h.LastUpdated)
		if err != nil {
			return wrap(op, err)
		}
		return nil
	}

	err := s.q.QueryRowContext(ctx, `
		UPDATE stock_holdings
		SET quantity = $1, average_buy_price = $2, stock_name = $3, last_updated = NOW()
		WHERE id = $4
		RETURNING last_updated
	`, h.Quantity, h.AverageBuyPrice, h.StockName, h.ID).Scan(&h.LastUpdated)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *queries) DeleteHolding(ctx context.Context, id int64) error {
	const op = "store.postgres.DeleteHolding"

	res, err := s.q.ExecContext(ctx, "DELETE FROM stock_holdings WHERE id = $1", id)
	if err != nil {
		return wrap(op, err)
	}
	return expectRow(op, res)
}

func (s *queries) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	const op = "store.postgres.InsertTransaction"

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO transactions (portfolio_id, stock_symbol, stock_name, transaction_type, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp
	`, t.PortfolioID, t.StockSymbol, t.StockName, string(t.TransactionType), t.Quantity, t.Price).Scan(&t.ID, &t.Timestamp)
	if err != nil {
		return wrap(op, err)
	}

	if _, err := s.q.ExecContext(ctx,
		"UPDATE portfolios SET last_updated = NOW() WHERE id = $1", t.PortfolioID,
	); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *queries) Transactions(ctx context.Context, portfolioID int64, limit int) ([]models.Transaction, error) {
	const op = "store.postgres.Transactions"

	query := `
		SELECT id, portfolio_id, stock_symbol, stock_name, transaction_type, quantity, price, timestamp
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY timestamp DESC, id DESC
	`
	args := []any{portfolioID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	txns := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.StockSymbol, &t.StockName, &kind, &t.Quantity, &t.Price, &t.Timestamp); err != nil {
			return nil, wrap(op, err)
		}
		t.TransactionType = models.TransactionType(kind)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return txns, nil
}

func (s *queries) FirstTransactionAt(ctx context.Context, portfolioID int64) (time.Time, error) {
	const op = "store.postgres.FirstTransactionAt"

	var first sql.NullTime
	err := s.q.QueryRowContext(ctx,
		"SELECT MIN(timestamp) FROM transactions WHERE portfolio_id = $1", portfolioID,
	).Scan(&first)
	if err != nil {
		return time.Time{}, wrap(op, err)
	}
	if !first.Valid {
		return time.Time{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return first.Time, nil
}

const challengeColumns = `id, name, description, creator_id, start_date, end_date, initial_balance, created_at`

func scanChallenge(row interface{ Scan(...any) error }) (models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatorID, &c.StartDate, &c.EndDate, &c.InitialBalance, &c.CreatedAt)
	return c, err
}

func (s *queries) CreateChallenge(ctx context.Context, c *models.Challenge) error {
	const op = "store.postgres.CreateChallenge"

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO challenges (name, description, creator_id, start_date, end_date, initial_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.Name, c.Description, c.CreatorID, c.StartDate, c.EndDate, c.InitialBalance).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *queries) Challenge(ctx context.Context, id int64) (models.Challenge, error) {
	const op = "store.postgres.Challenge"

	c, err := scanChallenge(s.q.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		return models.Challenge{}, wrap(op, err)
	}
	return c, nil
}

func (s *queries) Challenges(ctx context.Context) ([]models.Challenge, error) {
	const op = "store.postgres.Challenges"
	return s.challenges(ctx, op, `SELECT `+challengeColumns+` FROM challenges ORDER BY start_date, id`)
}

func (s *queries) EndedChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error) {
	const op = "store.postgres.EndedChallenges"
	return s.challenges(ctx, op, `
		SELECT `+challengeColumns+`
		FROM challenges c
		WHERE c.end_date <= $1
		  AND EXISTS (
			SELECT 1 FROM challenge_participants cp
			WHERE cp.challenge_id = c.id AND cp.final_portfolio_value IS NULL
		  )
		ORDER BY c.end_date, c.id
	`, now)
}

func (s *queries) challenges(ctx context.Context, op, query string, args ...any) ([]models.Challenge, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := make([]models.Challenge, 0)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (s *queries) AddParticipant(ctx context.Context, p *models.ChallengeParticipant) error {
	const op = "store.postgres.AddParticipant"

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO challenge_participants (user_id, challenge_id)
		VALUES ($1, $2)
		RETURNING id, join_date
	`, p.UserID, p.ChallengeID).Scan(&p.ID, &p.JoinDate)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

const participantSelect = `
	SELECT cp.id, cp.user_id, cp.challenge_id, u.username, cp.join_date, cp.final_portfolio_value
	FROM challenge_participants cp
	JOIN users u ON u.id = cp.user_id
`

func scanParticipant(row interface{ Scan(...any) error }) (models.ChallengeParticipant, error) {
	var p models.ChallengeParticipant
	err := row.Scan(&p.ID, &p.UserID, &p.ChallengeID, &p.Username, &p.JoinDate, &p.FinalPortfolioValue)
	return p, err
}

func (s *queries) Participant(ctx context.Context, challengeID, userID int64) (models.ChallengeParticipant, error) {
	const op = "store.postgres.Participant"

	p, err := scanParticipant(s.q.QueryRowContext(ctx,
		participantSelect+` WHERE cp.challenge_id = $1 AND cp.user_id = $2`,
		challengeID, userID,
	))
	if err != nil {
		return models.ChallengeParticipant{}, wrap(op, err)
	}
	return p, nil
}

func (s *queries) Participants(ctx context.Context, challengeID int64) ([]models.ChallengeParticipant, error) {
	const op = "store.postgres.Participants"

	rows, err := s.q.QueryContext(ctx, participantSelect+` WHERE cp.challenge_id = $1 ORDER BY cp.join_date, cp.id`, challengeID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := make([]models.ChallengeParticipant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (s *queries) UserChallengeIDs(ctx context.Context, userID int64) ([]int64, error) {
	const op = "store.postgres.UserChallengeIDs"

	rows, err := s.q.QueryContext(ctx,
		"SELECT challenge_id FROM challenge_participants WHERE user_id = $1 ORDER BY challenge_id", userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return ids, nil
}

func (s *queries) SetFinalValue(ctx context.Context, participantID int64, value decimal.Decimal) error {
	const op = "store.postgres.SetFinalValue"

	res, err := s.q.ExecContext(ctx,
		"UPDATE challenge_participants SET final_portfolio_value = $1 WHERE id = $2",
		value, participantID,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectRow(op, res)
}
