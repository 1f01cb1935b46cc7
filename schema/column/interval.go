package column

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
)

// intervalSpec renders a duration as the day/second/microsecond spec a
// native INTERVAL literal accepts, e.g. "1 DAYS 5 SECONDS".
func intervalSpec(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	days := d / (24 * time.Hour)
	rem := d % (24 * time.Hour)
	secs := rem / time.Second
	micros := (rem % time.Second) / time.Microsecond

	var parts []string
	add := func(n int64, unit string) {
		if n != 0 {
			if neg {
				n = -n
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, unit))
		}
	}
	add(int64(days), "DAYS")
	add(int64(secs), "SECONDS")
	add(int64(micros), "MICROSECONDS")
	if len(parts) == 0 {
		return "0 SECONDS"
	}
	return strings.Join(parts, " ")
}

// sqliteModifiers renders a duration as strftime offset modifiers.
// strftime's %f carries millisecond precision only, so a duration with
// a sub-millisecond remainder cannot be applied faithfully.
func sqliteModifiers(d time.Duration) ([]string, error) {
	if d%time.Millisecond != 0 {
		return nil, ostinato.NewPrecisionError("duration %s has sub-millisecond precision, which sqlite timestamp arithmetic cannot represent", d)
	}
	neg := d < 0
	if neg {
		d = -d
	}
	days := d / (24 * time.Hour)
	rem := d % (24 * time.Hour)
	secs := decimal.NewFromFloat(rem.Seconds())

	var mods []string
	sign := "+"
	if neg {
		sign = "-"
	}
	if days != 0 {
		mods = append(mods, fmt.Sprintf("%s%d DAYS", sign, int64(days)))
	}
	if !secs.IsZero() {
		mods = append(mods, fmt.Sprintf("%s%s SECONDS", sign, secs.String()))
	}
	if len(mods) == 0 {
		mods = append(mods, "+0 SECONDS")
	}
	return mods, nil
}

func (c *Column) temporalFormat() (string, bool) {
	switch c.kind {
	case TypeTimestamp, TypeTimestamptz:
		return "%Y-%m-%d %H:%M:%f", true
	case TypeDate:
		return "%Y-%m-%d", true
	case TypeTime:
		return "%H:%M:%f", true
	}
	return "", false
}

// durationExpr renders column-plus-duration arithmetic for the bound
// dialect. Subtraction passes a negated duration.
func (c *Column) durationExpr(d time.Duration) (osql.QueryString, error) {
	dialectName, err := c.dialectName()
	if err != nil {
		return osql.QueryString{}, err
	}
	col := fmt.Sprintf("%s.%s", osql.QuoteIdentifier(c.tableAlias()), osql.QuoteIdentifier(c.name))

	if dialect.NativeInterval(dialectName) {
		return osql.NewQueryString(fmt.Sprintf("%s + INTERVAL '%s'", col, intervalSpec(d))), nil
	}

	// SQLite: intervals are stored as seconds, timestamps go through
	// strftime offset modifiers.
	if c.kind == TypeInterval {
		secs := decimal.NewFromFloat(d.Seconds())
		return osql.NewQueryString(fmt.Sprintf("CAST(%s AS REAL) + %s", col, secs.String())), nil
	}
	format, ok := c.temporalFormat()
	if !ok {
		return osql.QueryString{}, ostinato.NewConfigError("column %q: duration arithmetic on non-temporal kind %s", c.name, c.kind)
	}
	mods, err := sqliteModifiers(d)
	if err != nil {
		return osql.QueryString{}, err
	}
	quoted := make([]string, len(mods))
	for i, m := range mods {
		quoted[i] = "'" + m + "'"
	}
	return osql.NewQueryString(fmt.Sprintf("strftime('%s', %s, %s)", format, col, strings.Join(quoted, ", "))), nil
}

// Add returns an expression advancing the column's value by d.
func (c *Column) Add(d time.Duration) (osql.QueryString, error) {
	return c.durationExpr(d)
}

// Sub returns an expression moving the column's value back by d.
func (c *Column) Sub(d time.Duration) (osql.QueryString, error) {
	return c.durationExpr(-d)
}
