package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
)

const pgUniqueViolation = "23505"

// PostgresRepository is a store.Repository backed by a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database, runs pending migrations
// and returns a ready repository.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, profile_picture)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.PasswordHash, user.ProfilePicture).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, profile_picture, created_at
		 FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, profile_picture, created_at
		 FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateProfilePicture(ctx context.Context, userID int64, pictureURL string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET profile_picture = $1 WHERE id = $2`, pictureURL, userID)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListIncome(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount_cents, date, note, created_at
		 FROM income WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()
	return collectIncomes(rows)
}

func (r *PostgresRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO income (user_id, amount_cents, date, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		in.UserID, in.Amount.Cents, in.Date.Time, in.Note).
		Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	return in, nil
}

func (r *PostgresRepository) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE income SET amount_cents = $1, date = $2, note = $3
		 WHERE id = $4 AND user_id = $5
		 RETURNING created_at`,
		in.Amount.Cents, in.Date.Time, in.Note, in.ID, in.UserID).
		Scan(&in.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	return in, nil
}

func (r *PostgresRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM income WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount_cents, category, subcategory, date, note, created_at
		 FROM expense WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func (r *PostgresRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expense (user_id, amount_cents, category, subcategory, date, note)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.UserID, e.Amount.Cents, e.Category, e.Subcategory, e.Date.Time, e.Note).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE expense SET amount_cents = $1, category = $2, subcategory = $3, date = $4, note = $5
		 WHERE id = $6 AND user_id = $7
		 RETURNING created_at`,
		e.Amount.Cents, e.Category, e.Subcategory, e.Date.Time, e.Note, e.ID, e.UserID).
		Scan(&e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM expense WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	var incomeCents, expenseCents int64

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM income WHERE user_id = $1`, userID).
		Scan(&incomeCents)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum income: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expense WHERE user_id = $1`, userID).
		Scan(&expenseCents)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum expenses: %w", err)
	}

	inRows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount_cents, date, note, created_at
		 FROM income WHERE user_id = $1 ORDER BY date DESC, id DESC LIMIT 5`, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("recent income: %w", err)
	}
	defer inRows.Close()
	recentIn, err := collectIncomes(inRows)
	if err != nil {
		return core.Summary{}, err
	}

	exRows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount_cents, category, subcategory, date, note, created_at
		 FROM expense WHERE user_id = $1 ORDER BY date DESC, id DESC LIMIT 5`, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("recent expenses: %w", err)
	}
	defer exRows.Close()
	recentEx, err := collectExpenses(exRows)
	if err != nil {
		return core.Summary{}, err
	}

	byCategory, err := r.CategoryTotals(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}

	return core.NewSummary(incomeCents, expenseCents, recentIn, recentEx, byCategory), nil
}

func (r *PostgresRepository) MonthlySummary(ctx context.Context, userID int64, year int) (core.MonthlySummary, error) {
	var ms core.MonthlySummary

	rows, err := r.pool.Query(ctx,
		`SELECT EXTRACT(MONTH FROM date)::int, COALESCE(SUM(amount_cents), 0)
		 FROM income WHERE user_id = $1 AND EXTRACT(YEAR FROM date) = $2
		 GROUP BY 1`, userID, year)
	if err != nil {
		return ms, fmt.Errorf("monthly income: %w", err)
	}
	if err := collectMonthSums(rows, &ms.Income); err != nil {
		return ms, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT EXTRACT(MONTH FROM date)::int, COALESCE(SUM(amount_cents), 0)
		 FROM expense WHERE user_id = $1 AND EXTRACT(YEAR FROM date) = $2
		 GROUP BY 1`, userID, year)
	if err != nil {
		return ms, fmt.Errorf("monthly expenses: %w", err)
	}
	if err := collectMonthSums(rows, &ms.Expenses); err != nil {
		return ms, err
	}

	return ms, nil
}

func (r *PostgresRepository) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0) AS total
		 FROM expense WHERE user_id = $1
		 GROUP BY category ORDER BY total DESC, category ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (entity, action, entity_id, user_id, amount_cents, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Entity, entry.Action, entry.EntityID, entry.UserID, entry.AmountCents, recordedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAudit(ctx context.Context, userID int64, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity, action, entity_id, user_id, amount_cents, recorded_at
		 FROM audit_log WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := []core.AuditEntry{}
	for rows.Next() {
		var e core.AuditEntry
		if err := rows.Scan(&e.ID, &e.Entity, &e.Action, &e.EntityID, &e.UserID, &e.AmountCents, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func collectIncomes(rows pgx.Rows) ([]core.Income, error) {
	out := []core.Income{}
	for rows.Next() {
		var in core.Income
		var date time.Time
		if err := rows.Scan(&in.ID, &in.UserID, &in.Amount.Cents, &date, &in.Note, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
		out = append(out, in)
	}
	return out, rows.Err()
}

func collectExpenses(rows pgx.Rows) ([]core.Expense, error) {
	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		var date time.Time
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Subcategory, &date, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
		out = append(out, e)
	}
	return out, rows.Err()
}

func collectMonthSums(rows pgx.Rows, dst *[12]core.Money) error {
	defer rows.Close()
	for rows.Next() {
		var month int
		var cents int64
		if err := rows.Scan(&month, &cents); err != nil {
			return fmt.Errorf("scan month sum: %w", err)
		}
		if month >= 1 && month <= 12 {
			dst[month-1].Cents = cents
		}
	}
	return rows.Err()
}
