// Package storage provides the SQLite and Postgres implementations of
// store.Repository, plus the embedded schema migrations for both.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLiteRepository is a store.Repository backed by a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database, runs pending migrations and
// returns a ready repository.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, profile_picture) VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.ProfilePicture)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	return r.UserByID(ctx, id)
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, profile_picture, created_at
		 FROM users WHERE email = ? COLLATE NOCASE`, email))
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, profile_picture, created_at
		 FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

func (r *SQLiteRepository) UpdateProfilePicture(ctx context.Context, userID int64, pictureURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture = ? WHERE id = ?`, pictureURL, userID)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListIncome(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, date, note, created_at
		 FROM income WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()
	return scanIncomes(rows)
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (user_id, amount_cents, date, note) VALUES (?, ?, ?, ?)`,
		in.UserID, in.Amount.Cents, in.Date.String(), in.Note)
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Income{}, fmt.Errorf("last insert id: %w", err)
	}
	return r.incomeByID(ctx, in.UserID, id)
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income SET amount_cents = ?, date = ?, note = ? WHERE id = ? AND user_id = ?`,
		in.Amount.Cents, in.Date.String(), in.Note, in.ID, in.UserID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Income{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Income{}, core.ErrNotFound
	}
	return r.incomeByID(ctx, in.UserID, in.ID)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM income WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) incomeByID(ctx context.Context, userID, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, date, note, created_at
		 FROM income WHERE id = ? AND user_id = ?`, id, userID)
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	return in, err
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, subcategory, date, note, created_at
		 FROM expense WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense (user_id, amount_cents, category, subcategory, date, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Category, e.Subcategory, e.Date.String(), e.Note)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}
	return r.expenseByID(ctx, e.UserID, id)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense SET amount_cents = ?, category = ?, subcategory = ?, date = ?, note = ?
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Category, e.Subcategory, e.Date.String(), e.Note, e.ID, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return r.expenseByID(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expense WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) expenseByID(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, subcategory, date, note, created_at
		 FROM expense WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	return e, err
}

func (r *SQLiteRepository) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	var incomeCents, expenseCents int64

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM income WHERE user_id = ?`, userID).
		Scan(&incomeCents)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum income: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expense WHERE user_id = ?`, userID).
		Scan(&expenseCents)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum expenses: %w", err)
	}

	inRows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, date, note, created_at
		 FROM income WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT 5`, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("recent income: %w", err)
	}
	defer inRows.Close()
	recentIn, err := scanIncomes(inRows)
	if err != nil {
		return core.Summary{}, err
	}

	exRows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, subcategory, date, note, created_at
		 FROM expense WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT 5`, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("recent expenses: %w", err)
	}
	defer exRows.Close()
	recentEx, err := scanExpenses(exRows)
	if err != nil {
		return core.Summary{}, err
	}

	byCategory, err := r.CategoryTotals(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}

	return core.NewSummary(incomeCents, expenseCents, recentIn, recentEx, byCategory), nil
}

func (r *SQLiteRepository) MonthlySummary(ctx context.Context, userID int64, year int) (core.MonthlySummary, error) {
	var ms core.MonthlySummary

	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER), COALESCE(SUM(amount_cents), 0)
		 FROM income WHERE user_id = ? AND strftime('%Y', date) = ?
		 GROUP BY 1`, userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return ms, fmt.Errorf("monthly income: %w", err)
	}
	if err := scanMonthSums(rows, &ms.Income); err != nil {
		return ms, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER), COALESCE(SUM(amount_cents), 0)
		 FROM expense WHERE user_id = ? AND strftime('%Y', date) = ?
		 GROUP BY 1`, userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return ms, fmt.Errorf("monthly expenses: %w", err)
	}
	if err := scanMonthSums(rows, &ms.Expenses); err != nil {
		return ms, err
	}

	return ms, nil
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0) AS total
		 FROM expense WHERE user_id = ?
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

func (r *SQLiteRepository) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity, action, entity_id, user_id, amount_cents, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Entity, entry.Action, entry.EntityID, entry.UserID, entry.AmountCents,
		recordedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAudit(ctx context.Context, userID int64, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity, action, entity_id, user_id, amount_cents, recorded_at
		 FROM audit_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := []core.AuditEntry{}
	for rows.Next() {
		var e core.AuditEntry
		var recordedAt string
		if err := rows.Scan(&e.ID, &e.Entity, &e.Action, &e.EntityID, &e.UserID, &e.AmountCents, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.RecordedAt = parseTimestamp(recordedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(row rowScanner) (core.Income, error) {
	var in core.Income
	var date, createdAt string
	if err := row.Scan(&in.ID, &in.UserID, &in.Amount.Cents, &date, &in.Note, &createdAt); err != nil {
		return core.Income{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse income date %q: %w", date, err)
	}
	in.Date = d
	in.CreatedAt = parseTimestamp(createdAt)
	return in, nil
}

func scanIncomes(rows *sql.Rows) ([]core.Income, error) {
	out := []core.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var date, createdAt string
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Subcategory, &date, &e.Note, &createdAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = d
	e.CreatedAt = parseTimestamp(createdAt)
	return e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanMonthSums(rows *sql.Rows, dst *[12]core.Money) error {
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

// parseTimestamp accepts the formats SQLite emits for CURRENT_TIMESTAMP and
// the RFC3339 values we write ourselves.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
