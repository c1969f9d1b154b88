package db

import (
	"fmt"
	"strings"
)

// Placeholders renders "$1, $2, ..., $n" for building IN clauses.
func Placeholders(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i)
	}
	return b.String()
}

// Int64Args converts ids to the []any shape QueryContext expects.
func Int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
