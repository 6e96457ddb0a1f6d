package ask

import (
	"fmt"
	"strings"
)

// ValidateReadOnly rejects any generated statement that is not a single
// read-only query. Generated SQL runs against the live database, so writes
// and multi-statement payloads are refused before execution.
func ValidateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("query is empty")
	}

	// A single trailing semicolon is tolerated; anything past it is not.
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("query must be a single statement")
	}

	first := strings.ToUpper(firstWord(trimmed))
	if first != "SELECT" && first != "WITH" {
		return fmt.Errorf("only SELECT queries are allowed, got %q", first)
	}

	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "CREATE ", "ATTACH ", "PRAGMA ", "REPLACE "} {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("query contains forbidden keyword %q", strings.TrimSpace(kw))
		}
	}
	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' {
			return s[:i]
		}
	}
	return s
}
