package repository

import (
	"strconv"
	"strings"

	"github.com/xnoquant/xno/database"
)

// Rebind rewrites ? placeholders to the numbered form postgres expects
func Rebind(dialect, query string) string {
	if dialect != database.DBPostgreSQL {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
