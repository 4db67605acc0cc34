package main

import (
	"fmt"
	"sort"
	"strings"
)

// sqliteCollations are the built-in collations whose comparison rules the
// PostgreSQL default collation does not reproduce. BINARY needs no warning.
var sqliteCollations = map[string]string{
	"NOCASE": "case-insensitive for ASCII; PostgreSQL text comparisons are case-sensitive",
	"RTRIM":  "ignores trailing spaces; PostgreSQL compares them",
}

type collationUse struct {
	Column    string // source column name, empty when not attributable
	Collation string
}

// collationUses finds COLLATE clauses in a CREATE TABLE or CREATE INDEX
// statement. A clause is attributed to the column whose definition or
// index term it appears in.
func collationUses(sql string) []collationUse {
	toks := tokenizeSQLite(sql)
	var uses []collationUse
	depth := 0
	current := ""
	expectName := false
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.kind == tokSpace:
			continue
		case tok.text == "(":
			depth++
			if depth == 1 {
				expectName, current = true, ""
			}
			continue
		case tok.text == ")":
			depth--
			continue
		case tok.text == "," && depth == 1:
			expectName, current = true, ""
			continue
		}

		if expectName && depth == 1 {
			expectName = false
			if tok.isIdent() && !isTableConstraintKeyword(tok) {
				current = tok.value
			}
		}
		if !tok.isKeyword("COLLATE") {
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j].kind == tokSpace {
			j++
		}
		if j == len(toks) {
			break
		}
		name := strings.ToUpper(toks[j].value)
		if _, ok := sqliteCollations[name]; ok {
			col := current
			if depth == 0 {
				col = ""
			}
			uses = append(uses, collationUse{Column: col, Collation: name})
		}
		i = j
	}
	return uses
}

func isTableConstraintKeyword(tok sqlToken) bool {
	if tok.kind != tokIdent {
		return false
	}
	switch strings.ToUpper(tok.value) {
	case "CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN":
		return true
	}
	return false
}

// collationFinding warns about NOCASE/RTRIM columns and index terms. Columns
// that also back a unique key are called out since duplicates that SQLite
// rejected may be accepted, and the reverse.
func collationFinding(schema *Schema) *Finding {
	if schema == nil {
		return nil
	}
	counts := make(map[string]int)
	var details []FindingDetail
	for _, t := range schema.Tables {
		unique := uniqueKeyColumns(t)
		seen := make(map[string]bool)
		record := func(u collationUse) {
			key := u.Column + "\x00" + u.Collation
			if seen[key] {
				return
			}
			seen[key] = true
			counts[u.Collation]++
			note := fmt.Sprintf("COLLATE %s %s", u.Collation, sqliteCollations[u.Collation])
			if col, ok := columnByName(t, u.Column); ok && unique[col.PGName] {
				note += "; column is part of a unique key, uniqueness semantics may differ"
			}
			details = append(details, FindingDetail{Table: t.SourceName, Column: u.Column, Note: note})
		}
		for _, u := range collationUses(t.CreateSQL) {
			record(u)
		}
		for _, idx := range t.Indexes {
			for _, u := range collationUses(idx.SQL) {
				record(u)
			}
		}
	}
	if len(details) == 0 {
		return nil
	}
	parts := make([]string, 0, len(counts))
	for _, c := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s x%d", c, counts[c]))
	}
	return &Finding{
		Type:     "collations",
		Severity: SeverityMedium,
		Message:  fmt.Sprintf("source uses collations PostgreSQL does not reproduce (%s)", strings.Join(parts, ", ")),
		Details:  details,
	}
}

// uniqueKeyColumns returns the PG names of columns in the primary key or any
// unique index.
func uniqueKeyColumns(t Table) map[string]bool {
	cols := make(map[string]bool)
	for _, c := range t.PrimaryKey {
		cols[c] = true
	}
	for _, idx := range t.Indexes {
		if idx.Unique {
			for _, c := range idx.Columns {
				cols[c] = true
			}
		}
	}
	return cols
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
