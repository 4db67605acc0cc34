package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateIndexes(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE "Users" (id INTEGER PRIMARY KEY, "Email" TEXT, name TEXT, deleted INTEGER)`,
		`CREATE INDEX idx_name ON "Users" (name COLLATE NOCASE DESC)`,
		`CREATE UNIQUE INDEX "Idx Email" ON Users ("Email") WHERE deleted = 0`,
		`CREATE INDEX idx_lower ON Users (lower(name))`,
	)
	tr := translateSource(t, src)

	require.Len(t, tr.Indexes, 3)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "idx email" ON public.users (email) WHERE deleted = 0`, tr.Indexes[0].SQL)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS idx_lower ON public.users ((lower(name)))`, tr.Indexes[1].SQL)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS idx_name ON public.users (name DESC)`, tr.Indexes[2].SQL)

	// expression and partial indexes are flagged for review
	assert.Len(t, tr.Warnings, 2)
	for _, s := range tr.Indexes {
		assert.True(t, strings.Contains(s.SQL, "IF NOT EXISTS"), s.SQL)
		assert.Equal(t, DDLIndex, s.Kind)
		assert.Equal(t, "Users", s.Table)
	}
}

func TestParseCreateIndex(t *testing.T) {
	p, err := parseCreateIndex(`CREATE UNIQUE INDEX IF NOT EXISTS main.ix ON main.t (a, "b c" ASC);`)
	require.NoError(t, err)
	assert.True(t, p.unique)
	require.Len(t, p.terms, 2)
	assert.Equal(t, "a", renderTokens(p.terms[0]))
	assert.Equal(t, `"b c" ASC`, renderTokens(p.terms[1]))
	assert.Empty(t, p.where)

	p, err = parseCreateIndex("create index ix on t (substr(a, 1, 3)) where a is not null")
	require.NoError(t, err)
	require.Len(t, p.terms, 1)
	assert.Equal(t, "substr(a, 1, 3)", renderTokens(p.terms[0]))
	assert.Equal(t, "a is not null", renderTokens(p.where))

	bad := []string{
		"CREATE TABLE t (a)",
		"CREATE INDEX ix ON t (a",
		"CREATE INDEX ix t (a)",
		"CREATE INDEX ix ON t (a) ORDER BY a",
		"CREATE INDEX IF EXISTS ix ON t (a)",
	}
	for _, sql := range bad {
		if _, err := parseCreateIndex(sql); err == nil {
			t.Errorf("parseCreateIndex(%q) succeeded, want error", sql)
		}
	}
}

func TestTranslateIndex_Unparseable(t *testing.T) {
	tbl := Table{SourceName: "t", PGName: "t"}
	_, warn, ok := translateIndex(tbl, Index{SourceName: "ix", Name: "ix", SQL: "CREATE INDEX ix ON t (a"}, "public")
	assert.False(t, ok)
	assert.Contains(t, warn, "skipped")

	_, warn, ok = translateIndex(tbl, Index{SourceName: "sqlite_autoindex_t_1", Name: "sqlite_autoindex_t_1"}, "public")
	assert.False(t, ok)
	assert.Contains(t, warn, "no columns")
}

func TestTokenizeSQLite(t *testing.T) {
	toks := tokenizeSQLite(`a "b""c" [d e] 'it''s' (x)`)
	var kinds []sqlTokenKind
	var values []string
	for _, tok := range toks {
		if tok.kind == tokSpace {
			continue
		}
		kinds = append(kinds, tok.kind)
		values = append(values, tok.value)
	}
	assert.Equal(t, []sqlTokenKind{tokIdent, tokQuotedIdent, tokQuotedIdent, tokString, tokPunct, tokIdent, tokPunct}, kinds)
	assert.Equal(t, []string{"a", `b"c`, "d e", "it's", "", "x", ""}, values)

	var b strings.Builder
	for _, tok := range toks {
		b.WriteString(tok.text)
	}
	assert.Equal(t, `a "b""c" [d e] 'it''s' (x)`, b.String())
}
