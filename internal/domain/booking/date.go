package booking

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date, the granularity bookings are kept at.
// Stored as YYYY-MM-DD so it survives the JSON and SQL date columns of the
// provider unchanged.
type Date string

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// DateOf truncates a time to its calendar date
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Today returns the current calendar date
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string {
	return string(d)
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner; Postgres date columns arrive as time.Time
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
	case []byte:
		*d = Date(string(v))
	case string:
		*d = Date(v)
	default:
		return fmt.Errorf("cannot scan %T into booking.Date", src)
	}
	return nil
}
