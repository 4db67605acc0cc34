package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSchema_Users(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE, age INTEGER, status TEXT DEFAULT 'new')`,
		`INSERT INTO users VALUES (1, 'Alice', 'alice@example.com', 30, 'new'), (2, 'Bob', 'bob@example.com', 25, 'active'), (3, 'Carol', NULL, NULL, 'new')`,
	)
	tr := translateSource(t, src)

	require.Len(t, tr.Tables, 1)
	want := `CREATE TABLE public.users (
  id serial NOT NULL PRIMARY KEY,
  name varchar(255) NOT NULL,
  email varchar(255),
  age integer,
  status varchar(255) DEFAULT 'new'
)`
	assert.Equal(t, want, tr.Tables[0].SQL)
	assert.Equal(t, DDLTable, tr.Tables[0].Kind)

	require.Len(t, tr.Indexes, 1)
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON public.users (email)", tr.Indexes[0].SQL)
	assert.Empty(t, tr.ForeignKeys)

	plan, ok := tr.Plan("users")
	require.True(t, ok)
	assert.Equal(t, "rowid", plan.OrderBy)
	assert.Equal(t, []string{"id"}, plan.PrimaryKey)
	assert.Equal(t, "serial", plan.Columns[0].TargetType)
	assert.Equal(t, "integer", plan.Columns[3].TargetType)
	assert.Len(t, plan.Indexes, 1)
}

func TestTranslateSchema_CompositeKeyAndEmptyTable(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE memberships (user_id INTEGER NOT NULL, group_id INTEGER NOT NULL, role VARCHAR(20), joined DATETIME, PRIMARY KEY (user_id, group_id))`,
	)
	tr := translateSource(t, src)
	want := `CREATE TABLE public.memberships (
  user_id bigint NOT NULL,
  group_id bigint NOT NULL,
  role varchar(20),
  joined timestamp,
  PRIMARY KEY (user_id, group_id)
)`
	assert.Equal(t, want, tr.Tables[0].SQL)
}

func TestTranslateSchema_WithoutRowID(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE kv ("Key" TEXT NOT NULL, scope TEXT NOT NULL, value BLOB, PRIMARY KEY (scope, "Key")) WITHOUT ROWID`,
	)
	tr := translateSource(t, src)
	plan, ok := tr.Plan("kv")
	require.True(t, ok)
	assert.Equal(t, `"scope", "Key"`, plan.OrderBy)
	assert.Equal(t, []string{"scope", "key"}, plan.PrimaryKey)
	assert.Contains(t, tr.Tables[0].SQL, "  PRIMARY KEY (scope, key)")
	assert.Contains(t, tr.Tables[0].SQL, "  value bytea")
}

func TestTranslateSchema_ForeignKeys(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE books (id INTEGER PRIMARY KEY, author_id INTEGER REFERENCES authors ON DELETE CASCADE, editor_id INTEGER REFERENCES authors(id))`,
	)
	tr := translateSource(t, src)
	require.Len(t, tr.ForeignKeys, 2)
	assert.Equal(t,
		"ALTER TABLE public.books ADD CONSTRAINT fk_books_author_id FOREIGN KEY (author_id) REFERENCES public.authors (id) ON UPDATE NO ACTION ON DELETE CASCADE",
		tr.ForeignKeys[0].SQL)
	assert.Equal(t,
		"ALTER TABLE public.books ADD CONSTRAINT fk_books_editor_id FOREIGN KEY (editor_id) REFERENCES public.authors (id) ON UPDATE NO ACTION ON DELETE NO ACTION",
		tr.ForeignKeys[1].SQL)

	stmts := tr.Statements()
	require.Len(t, stmts, 4)
	assert.Equal(t, DDLTable, stmts[0].Kind)
	assert.Equal(t, DDLForeignKey, stmts[3].Kind)
}

func TestTranslateSchema_RowIDAliasKeepsIntegerType(t *testing.T) {
	schema := &Schema{Tables: []Table{{
		SourceName: "t",
		PGName:     "t",
		PrimaryKey: []string{"id"},
		Columns: []Column{
			{Table: "t", SourceName: "id", PGName: "id", DeclaredType: "INTEGER", Affinity: AffinityInteger, PKOrdinal: 1},
		},
	}}}
	tr, err := translateSchema(schema, nil, TranslateOptions{Schema: "app", Overrides: TypeOverrides{"t.id": "text"}})
	require.NoError(t, err)
	assert.Contains(t, tr.Tables[0].SQL, "id bigserial NOT NULL PRIMARY KEY")
	require.Len(t, tr.Warnings, 1)
	assert.Contains(t, tr.Warnings[0], "rowid alias")
}

func TestTranslateSchema_OverrideBeatsSample(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, age INTEGER)`,
		`INSERT INTO users VALUES (1, 30)`,
	)
	ctx := context.Background()
	schema, err := newSQLiteIntrospector(src, false, nil).IntrospectSchema(ctx, nil)
	require.NoError(t, err)
	analysis, err := analyzeSchema(ctx, src, schema, nil, 10, nil)
	require.NoError(t, err)

	// the analysis was taken before the override existed
	tr, err := translateSchema(schema, analysis, TranslateOptions{Overrides: TypeOverrides{"users.age": "smallint"}})
	require.NoError(t, err)
	assert.Contains(t, tr.Tables[0].SQL, "  age smallint")
	assert.True(t, strings.HasPrefix(tr.Tables[0].SQL, "CREATE TABLE public.users"))
}

func TestTranslateSchema_NoEvidenceFallsBackToDeclaredType(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE events (id INTEGER PRIMARY KEY, happened_at TIMESTAMP, payload JSON, ratio DECIMAL(5,2), flags WHATEVER)`,
	)
	tr := translateSource(t, src)
	sql := tr.Tables[0].SQL
	assert.Contains(t, sql, "  happened_at timestamp")
	assert.Contains(t, sql, "  payload jsonb")
	assert.Contains(t, sql, "  ratio numeric(5,2)")
	assert.Contains(t, sql, "  flags numeric")
	assert.Contains(t, sql, "  id bigserial NOT NULL PRIMARY KEY")
}

func TestTranslateSchema_IfNotExistsAndSnakeCase(t *testing.T) {
	src := openTestSource(t,
		`CREATE TABLE UserProfiles (profileId INTEGER PRIMARY KEY, displayName TEXT)`,
	)
	ctx := context.Background()
	schema, err := newSQLiteIntrospector(src, true, nil).IntrospectSchema(ctx, nil)
	require.NoError(t, err)
	tr, err := translateSchema(schema, nil, TranslateOptions{Schema: "App", IfNotExists: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tr.Tables[0].SQL, `CREATE TABLE IF NOT EXISTS "App".user_profiles (`), tr.Tables[0].SQL)
	assert.Contains(t, tr.Tables[0].SQL, "display_name text")

	plan, _ := tr.Plan("UserProfiles")
	assert.Equal(t, "profileId", plan.Columns[0].SourceName)
	assert.Equal(t, "profile_id", plan.Columns[0].PGName)
}

func TestSQLiteMapType(t *testing.T) {
	tests := []struct {
		declared string
		want     string
	}{
		{"INTEGER", "bigint"},
		{"TINYINT", "smallint"},
		{"VARCHAR(80)", "varchar(80)"},
		{"NVARCHAR", "text"},
		{"DOUBLE", "double precision"},
		{"NUMERIC(10)", "numeric(10)"},
		{"BOOLEAN", "boolean"},
		{"DATE", "date"},
		{"UUID", "uuid"},
		{"", "bytea"},
		{"MEDIUMTEXT", "text"},
		{"BIGINTEGER", "bigint"},
		{"FLOATING", "double precision"},
		{"MONEY", "numeric"},
	}
	for _, tt := range tests {
		col := Column{DeclaredType: tt.declared, Affinity: declaredTypeAffinity(tt.declared)}
		if got := sqliteMapType(col); got != tt.want {
			t.Errorf("sqliteMapType(%q) = %q, want %q", tt.declared, got, tt.want)
		}
	}
}
