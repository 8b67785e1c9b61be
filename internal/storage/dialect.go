package storage

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the SQL backends. Queries are
// written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name       string // golang-migrate database name
	DriverName string // database/sql driver name
	numbered   bool
}

var (
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite"}
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", numbered: true}
)

// Rebind converts '?' placeholders into $1, $2, ... for Postgres. Quoted
// literals are copied untouched.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
