package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	User struct {
		ID             int64     `json:"id"`
		Username       string    `json:"username"`
		Email          string    `json:"email"`
		PasswordHash   string    `json:"-"`
		ProfilePicture string    `json:"profile_picture,omitempty"`
		CreatedAt      time.Time `json:"created_at,omitempty"`
	}

	Income struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		Amount    Money     `json:"amount"`
		Date      Date      `json:"date"`
		Note      string    `json:"note"`
		CreatedAt time.Time `json:"created_at,omitempty"`
	}

	Expense struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Subcategory string    `json:"subcategory,omitempty"`
		Date        Date      `json:"date"`
		Note        string    `json:"note"`
		CreatedAt   time.Time `json:"created_at,omitempty"`
	}

	// AuditEntry records one applied transaction mutation. Rows are written
	// by the worker, never by request handlers.
	AuditEntry struct {
		ID          int64
		Entity      string
		Action      string
		EntityID    int64
		UserID      int64
		AmountCents int64
		RecordedAt  time.Time
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyUsername   = errors.New("empty username")
	ErrEmptyEmail      = errors.New("empty email")
	ErrEmptyPassword   = errors.New("empty password")
	ErrEmptyCategory   = errors.New("empty category")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Year, Month and Day of the calendar date.
func (d Date) Year() int  { return d.Time.Year() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Day() int   { return d.Time.Day() }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Clients that serialize Date objects send full timestamps.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

// Validate checks the fields the database schema would reject. Amount sign is
// deliberately unconstrained: the system records refunds and corrections as
// negative rows.
func (in Income) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
