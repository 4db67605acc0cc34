package main

import (
	"fmt"
	"strings"
)

// DDLKind orders statements: tables first, then indexes, then foreign keys.
type DDLKind string

const (
	DDLTable      DDLKind = "table"
	DDLIndex      DDLKind = "index"
	DDLForeignKey DDLKind = "foreign_key"
)

// DDLStatement is one generated PostgreSQL statement.
type DDLStatement struct {
	Kind  DDLKind
	Table string // source table name
	Name  string // index or constraint name; table name for DDLTable
	SQL   string
}

// TranslateOptions controls schema translation.
type TranslateOptions struct {
	Schema      string
	Overrides   TypeOverrides
	IfNotExists bool // CREATE TABLE IF NOT EXISTS, for reused schemas
}

// Translation is the generated target schema plus the per-table plans the
// data mover and verifier consume.
type Translation struct {
	Tables      []DDLStatement
	Indexes     []DDLStatement
	ForeignKeys []DDLStatement
	Plans       []TableMigrationPlan
	Warnings    []string
}

// Statements returns all DDL in dependency order.
func (tr *Translation) Statements() []DDLStatement {
	out := make([]DDLStatement, 0, len(tr.Tables)+len(tr.Indexes)+len(tr.ForeignKeys))
	out = append(out, tr.Tables...)
	out = append(out, tr.Indexes...)
	out = append(out, tr.ForeignKeys...)
	return out
}

// Plan returns the migration plan for a source table.
func (tr *Translation) Plan(table string) (TableMigrationPlan, bool) {
	for _, p := range tr.Plans {
		if p.SourceName == table {
			return p, true
		}
	}
	return TableMigrationPlan{}, false
}

// translateSchema generates CREATE TABLE, CREATE INDEX and ALTER TABLE ...
// FOREIGN KEY statements for every table. analysis may be nil, in which case
// overrides and then declared types decide column types.
func translateSchema(schema *Schema, analysis *SchemaAnalysis, opts TranslateOptions) (*Translation, error) {
	if schema == nil {
		return nil, fmt.Errorf("translate schema: no tables")
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}

	tr := &Translation{}
	for _, t := range schema.Tables {
		plan, ddl, warns := translateTable(t, analysis, opts)
		tr.Tables = append(tr.Tables, ddl)
		tr.Warnings = append(tr.Warnings, warns...)

		for _, idx := range t.Indexes {
			stmt, warn, ok := translateIndex(t, idx, opts.Schema)
			if warn != "" {
				tr.Warnings = append(tr.Warnings, warn)
			}
			if ok {
				tr.Indexes = append(tr.Indexes, stmt)
				plan.Indexes = append(plan.Indexes, stmt)
			}
		}

		for _, fk := range t.ForeignKeys {
			stmt := translateForeignKey(t, fk, schema, opts.Schema)
			tr.ForeignKeys = append(tr.ForeignKeys, stmt)
		}
		tr.Plans = append(tr.Plans, plan)
	}
	return tr, nil
}

// resolveColumnType picks the final PostgreSQL type for col.
func resolveColumnType(t Table, col Column, analysis *SchemaAnalysis, overrides TypeOverrides) (string, string) {
	rec, ok := analysis.Recommendation(t.SourceName, col.SourceName)
	if !ok || !rec.Override {
		// analysis artifacts may be stale relative to overrides
		if o := recommendType(col, TypeObservation{}, overrides); o.Override {
			rec, ok = o, true
		}
	}

	pgType := sqliteMapType(col)
	if ok && rec.HasEvidence() {
		pgType = rec.Type
	}

	if alias, isAlias := t.RowIDAlias(); isAlias && alias.SourceName == col.SourceName && !integerFamily(pgType) {
		return "bigint", fmt.Sprintf("%s.%s is a rowid alias; type %q replaced by bigint", t.SourceName, col.SourceName, pgType)
	}
	return pgType, ""
}

func translateTable(t Table, analysis *SchemaAnalysis, opts TranslateOptions) (TableMigrationPlan, DDLStatement, []string) {
	var warns []string
	plan := TableMigrationPlan{
		SourceName:  t.SourceName,
		PGName:      t.PGName,
		Schema:      opts.Schema,
		PrimaryKey:  t.PrimaryKey,
		ForeignKeys: t.ForeignKeys,
		OrderBy:     sourceOrderBy(t),
	}

	singlePK := len(t.PrimaryKey) == 1

	var b strings.Builder
	create := "CREATE TABLE "
	if opts.IfNotExists {
		create = "CREATE TABLE IF NOT EXISTS "
	}
	fmt.Fprintf(&b, "%s%s (\n", create, pgQualified(opts.Schema, t.PGName))

	lines := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		pgType, warn := resolveColumnType(t, col, analysis, opts.Overrides)
		if warn != "" {
			warns = append(warns, warn)
		}

		colType := pgType
		serial := false
		if singlePK && col.IsPrimaryKey() && integerFamily(pgType) {
			colType = serialFor(pgType)
			serial = true
		}
		plan.Columns = append(plan.Columns, PlannedColumn{
			SourceName: col.SourceName,
			PGName:     col.PGName,
			TargetType: colType,
		})

		line := fmt.Sprintf("  %s %s", pgIdent(col.PGName), colType)
		if !col.Nullable || col.IsPrimaryKey() {
			line += " NOT NULL"
		}
		if !serial {
			def, warn := mapDefault(col, pgType)
			if warn != "" {
				warns = append(warns, warn)
			}
			if def != "" {
				line += " DEFAULT " + def
			}
		}
		if singlePK && col.IsPrimaryKey() {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKey) > 1 {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", quotedColumnList(t.PrimaryKey)))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")

	return plan, DDLStatement{Kind: DDLTable, Table: t.SourceName, Name: t.PGName, SQL: b.String()}, warns
}

// sourceOrderBy is the stable paging order: rowid, or the primary key for
// WITHOUT ROWID tables.
func sourceOrderBy(t Table) string {
	if !t.WithoutRowID {
		return "rowid"
	}
	var cols []string
	for _, pk := range t.PrimaryKey {
		for _, c := range t.Columns {
			if c.PGName == pk {
				cols = append(cols, quoteSQLiteIdent(c.SourceName))
			}
		}
	}
	return strings.Join(cols, ", ")
}

func translateForeignKey(t Table, fk ForeignKey, schema *Schema, pgSchema string) DDLStatement {
	refCols := fk.RefColumns
	if len(refCols) == 0 {
		if parent, ok := schema.Table(fk.RefTable); ok {
			refCols = parent.PrimaryKey
		}
	}
	refList := ""
	if len(refCols) > 0 {
		refList = " (" + quotedColumnList(refCols) + ")"
	}
	q := fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s%s ON UPDATE %s ON DELETE %s",
		pgQualified(pgSchema, t.PGName),
		pgIdent(fk.Name),
		quotedColumnList(fk.Columns),
		pgQualified(pgSchema, fk.RefPGTable),
		refList,
		fk.UpdateRule, fk.DeleteRule,
	)
	return DDLStatement{Kind: DDLForeignKey, Table: t.SourceName, Name: fk.Name, SQL: q}
}
