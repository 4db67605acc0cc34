package main

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// mapDefault translates a SQLite column default into a PostgreSQL DEFAULT
// expression for pgType. An empty expression means no DEFAULT clause; warn
// is non-empty when a default was dropped.
func mapDefault(col Column, pgType string) (expr string, warn string) {
	if col.Default == nil {
		return "", ""
	}

	raw := stripParens(strings.TrimSpace(*col.Default))
	upper := strings.ToUpper(raw)

	if upper == "NULL" || raw == "" {
		return "", ""
	}

	switch upper {
	case "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME":
		return upper, ""
	case "TRUE", "FALSE":
		if pgType == "boolean" {
			return upper, ""
		}
		if upper == "TRUE" {
			return "1", ""
		}
		return "0", ""
	}

	if kw, ok := sqliteNowFunction(upper); ok {
		return kw, ""
	}

	if isNumericLiteral(raw) {
		if pgType == "boolean" {
			switch raw {
			case "0":
				return "FALSE", ""
			case "1":
				return "TRUE", ""
			}
			return "", fmt.Sprintf("default %s on %s.%s is not a boolean; dropped", raw, col.Table, col.SourceName)
		}
		if pgType == "bytea" {
			return "", fmt.Sprintf("numeric default %s on bytea column %s.%s dropped", raw, col.Table, col.SourceName)
		}
		return raw, ""
	}

	// X'...' blob literal
	if len(raw) >= 3 && (raw[0] == 'x' || raw[0] == 'X') && raw[1] == '\'' && raw[len(raw)-1] == '\'' {
		h := raw[2 : len(raw)-1]
		if _, err := hex.DecodeString(h); err == nil {
			return fmt.Sprintf("'\\x%s'::bytea", strings.ToLower(h)), ""
		}
	}

	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		q := string(raw[0])
		inner := strings.ReplaceAll(raw[1:len(raw)-1], q+q, q)
		if numericFamily(pgType) && !isNumericLiteral(inner) {
			return "", fmt.Sprintf("text default %q on %s column %s.%s dropped", inner, pgType, col.Table, col.SourceName)
		}
		return pgLiteral(inner), ""
	}

	return "", fmt.Sprintf("expression default %q on %s.%s dropped", raw, col.Table, col.SourceName)
}

// sqliteNowFunction rewrites datetime('now')-style defaults to the PostgreSQL keyword.
func sqliteNowFunction(upper string) (string, bool) {
	compact := strings.ReplaceAll(upper, " ", "")
	compact = strings.ReplaceAll(compact, `"`, "'")
	switch compact {
	case "DATETIME('NOW')", "STRFTIME('%Y-%M-%D%H:%M:%S','NOW')", "DATETIME('NOW','UTC')":
		return "CURRENT_TIMESTAMP", true
	case "DATE('NOW')":
		return "CURRENT_DATE", true
	case "TIME('NOW')":
		return "CURRENT_TIME", true
	case "DATETIME('NOW','LOCALTIME')":
		return "LOCALTIMESTAMP", true
	}
	return "", false
}

// stripParens removes balanced outer parentheses: SQLite keeps expression
// defaults as written, e.g. (datetime('now')).
func stripParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && balanced(s[1:len(s)-1]) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inQuote
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	hasDigit := false
	hasDot := false
	hasExp := false
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '.' && !hasDot && !hasExp:
			hasDot = true
		case (c == 'e' || c == 'E') && hasDigit && !hasExp && i+1 < len(s):
			hasExp = true
			if s[i+1] == '-' || s[i+1] == '+' {
				i++
				if i+1 >= len(s) {
					return false
				}
			}
		default:
			return false
		}
	}
	return hasDigit
}

// numericFamily reports whether pgType only accepts numeric input.
func numericFamily(pgType string) bool {
	t := strings.ToLower(pgType)
	if integerFamily(t) {
		return true
	}
	return t == "double precision" || t == "real" || strings.HasPrefix(t, "numeric") || strings.HasPrefix(t, "decimal")
}
