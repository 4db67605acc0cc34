package main

import (
	"fmt"
	"strings"
)

type sqlTokenKind int

const (
	tokSpace sqlTokenKind = iota
	tokIdent              // bare identifier or keyword
	tokQuotedIdent        // "x", `x` or [x]
	tokString             // 'x'
	tokPunct
	tokOther
)

type sqlToken struct {
	kind  sqlTokenKind
	text  string // as written
	value string // unquoted identifier value
}

// tokenizeSQLite splits SQLite SQL into tokens, keeping whitespace so the
// statement can be re-rendered.
func tokenizeSQLite(s string) []sqlToken {
	var toks []sqlToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			j := i
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			toks = append(toks, sqlToken{kind: tokSpace, text: s[i:j]})
			i = j
		case c == '"' || c == '`' || c == '[' || c == '\'':
			closer := c
			if c == '[' {
				closer = ']'
			}
			j := i + 1
			var val strings.Builder
			for j < len(s) {
				if s[j] == closer {
					if closer != ']' && j+1 < len(s) && s[j+1] == closer {
						val.WriteByte(closer)
						j += 2
						continue
					}
					break
				}
				val.WriteByte(s[j])
				j++
			}
			end := min(j+1, len(s))
			kind := tokQuotedIdent
			if c == '\'' {
				kind = tokString
			}
			toks = append(toks, sqlToken{kind: kind, text: s[i:end], value: val.String()})
			i = end
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			toks = append(toks, sqlToken{kind: tokIdent, text: s[i:j], value: s[i:j]})
			i = j
		case strings.IndexByte("(),.;", c) >= 0:
			toks = append(toks, sqlToken{kind: tokPunct, text: s[i : i+1]})
			i++
		default:
			toks = append(toks, sqlToken{kind: tokOther, text: s[i : i+1]})
			i++
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$'
}

func (t sqlToken) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (t sqlToken) isIdent() bool {
	return t.kind == tokIdent || t.kind == tokQuotedIdent
}

// parsedIndex is the shape of a SQLite CREATE INDEX statement.
type parsedIndex struct {
	unique bool
	terms  [][]sqlToken // one token run per key term
	where  []sqlToken
}

// parseCreateIndex parses CREATE [UNIQUE] INDEX [IF NOT EXISTS] [schema.]name
// ON table (terms) [WHERE expr].
func parseCreateIndex(sql string) (parsedIndex, error) {
	toks := tokenizeSQLite(strings.TrimSpace(sql))
	var p parsedIndex
	pos := 0
	skipSpace := func() {
		for pos < len(toks) && toks[pos].kind == tokSpace {
			pos++
		}
	}
	expect := func(kw string) bool {
		skipSpace()
		if pos < len(toks) && toks[pos].isKeyword(kw) {
			pos++
			return true
		}
		return false
	}

	if !expect("CREATE") {
		return p, fmt.Errorf("not a CREATE INDEX statement")
	}
	p.unique = expect("UNIQUE")
	if !expect("INDEX") {
		return p, fmt.Errorf("not a CREATE INDEX statement")
	}
	if expect("IF") && !(expect("NOT") && expect("EXISTS")) {
		return p, fmt.Errorf("malformed IF NOT EXISTS")
	}
	// the index name, possibly schema-qualified, runs up to ON
	for pos < len(toks) && !toks[pos].isKeyword("ON") {
		pos++
	}
	if !expect("ON") {
		return p, fmt.Errorf("missing ON <table>")
	}
	skipSpace()
	if pos >= len(toks) || !toks[pos].isIdent() {
		return p, fmt.Errorf("missing ON <table>")
	}
	pos++
	skipSpace()
	if pos < len(toks) && toks[pos].text == "." {
		pos++
		skipSpace()
		pos++
		skipSpace()
	}
	if pos >= len(toks) || toks[pos].text != "(" {
		return p, fmt.Errorf("missing index key list")
	}

	depth := 0
	closed := false
	var term []sqlToken
	for ; pos < len(toks) && !closed; pos++ {
		t := toks[pos]
		if t.kind == tokPunct {
			switch t.text {
			case "(":
				depth++
				if depth == 1 {
					continue
				}
			case ")":
				depth--
				if depth == 0 {
					p.terms = append(p.terms, trimSpaceTokens(term))
					closed = true
					continue
				}
			case ",":
				if depth == 1 {
					p.terms = append(p.terms, trimSpaceTokens(term))
					term = nil
					continue
				}
			}
		}
		term = append(term, t)
	}
	if !closed {
		return p, fmt.Errorf("unbalanced index key list")
	}

	tail := trimSpaceTokens(toks[pos:])
	if n := len(tail); n > 0 && tail[n-1].text == ";" {
		tail = trimSpaceTokens(tail[:n-1])
	}
	if len(tail) > 0 {
		if !tail[0].isKeyword("WHERE") {
			return p, fmt.Errorf("unexpected trailing clause %q", renderTokens(tail))
		}
		p.where = trimSpaceTokens(tail[1:])
	}
	return p, nil
}

func trimSpaceTokens(toks []sqlToken) []sqlToken {
	for len(toks) > 0 && toks[0].kind == tokSpace {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].kind == tokSpace {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func renderTokens(toks []sqlToken) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.text)
	}
	return b.String()
}

// rewriteColumnRefs renders tokens with SQLite identifiers that name a
// column of t replaced by their PostgreSQL form. Other quoted identifiers
// lose their SQLite quoting.
func rewriteColumnRefs(toks []sqlToken, t Table) string {
	var b strings.Builder
	for _, tok := range toks {
		switch tok.kind {
		case tokIdent, tokQuotedIdent:
			if col, ok := columnByName(t, tok.value); ok {
				b.WriteString(pgIdent(col.PGName))
			} else if tok.kind == tokQuotedIdent {
				b.WriteString(pgIdent(strings.ToLower(tok.value)))
			} else {
				b.WriteString(tok.text)
			}
		default:
			b.WriteString(tok.text)
		}
	}
	return b.String()
}

func columnByName(t Table, name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.SourceName, name) {
			return c, true
		}
	}
	return Column{}, false
}

// translateIndexTerm converts one key term. Plain column references keep
// ASC/DESC and drop SQLite collations.
func translateIndexTerm(term []sqlToken, t Table) (string, bool) {
	var core []sqlToken
	order := ""
	for i := 0; i < len(term); i++ {
		tok := term[i]
		switch {
		case tok.isKeyword("ASC"), tok.isKeyword("DESC"):
			order = " " + strings.ToUpper(tok.text)
			continue
		case tok.isKeyword("COLLATE"):
			// skip the collation name that follows
			for i+1 < len(term) && term[i+1].kind == tokSpace {
				i++
			}
			i++
			continue
		}
		core = append(core, tok)
	}
	core = trimSpaceTokens(core)
	if len(core) == 1 && core[0].isIdent() {
		if col, ok := columnByName(t, core[0].value); ok {
			return pgIdent(col.PGName) + order, true
		}
	}
	return "(" + rewriteColumnRefs(core, t) + ")" + order, false
}

// translateIndex emits CREATE [UNIQUE] INDEX IF NOT EXISTS for a source
// index. ok is false when the index cannot be expressed and was skipped.
func translateIndex(t Table, idx Index, pgSchema string) (stmt DDLStatement, warn string, ok bool) {
	target := pgQualified(pgSchema, t.PGName)
	unique := ""

	if idx.SQL == "" {
		// automatic index from a UNIQUE constraint
		if len(idx.Columns) == 0 {
			return stmt, fmt.Sprintf("index %s on %s has no columns; skipped", idx.SourceName, t.SourceName), false
		}
		name := truncateIdent(t.PGName + "_" + strings.Join(idx.Columns, "_") + "_key")
		if idx.Unique {
			unique = "UNIQUE "
		}
		q := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, pgIdent(name), target, quotedColumnList(idx.Columns))
		return DDLStatement{Kind: DDLIndex, Table: t.SourceName, Name: name, SQL: q}, "", true
	}

	parsed, err := parseCreateIndex(idx.SQL)
	if err != nil {
		return stmt, fmt.Sprintf("index %s on %s: %v; skipped", idx.SourceName, t.SourceName, err), false
	}
	if parsed.unique {
		unique = "UNIQUE "
	}
	terms := make([]string, len(parsed.terms))
	expression := false
	for i, term := range parsed.terms {
		s, plain := translateIndexTerm(term, t)
		terms[i] = s
		expression = expression || !plain
	}
	q := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, pgIdent(idx.Name), target, strings.Join(terms, ", "))
	if len(parsed.where) > 0 {
		q += " WHERE " + rewriteColumnRefs(parsed.where, t)
	}
	if expression || len(parsed.where) > 0 {
		warn = fmt.Sprintf("index %s on %s uses expressions or a WHERE clause; review the translated SQL", idx.SourceName, t.SourceName)
	}
	return DDLStatement{Kind: DDLIndex, Table: t.SourceName, Name: idx.Name, SQL: q}, warn, true
}
