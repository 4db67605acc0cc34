package main

import (
	"context"
	"database/sql"
)

// ColumnAnalysis is one column's sample and recommendation.
type ColumnAnalysis struct {
	Name           string             `json:"name"`
	DeclaredType   string             `json:"declared_type"`
	Affinity       Affinity           `json:"affinity"`
	Nullable       bool               `json:"nullable"`
	PrimaryKey     bool               `json:"primary_key,omitempty"`
	Generated      string             `json:"generated,omitempty"`
	Observation    TypeObservation    `json:"observation"`
	Recommendation TypeRecommendation `json:"recommendation"`
}

// TableAnalysis holds the per-column results for one table. Error is set
// when sampling failed; Columns is then empty.
type TableAnalysis struct {
	Name     string           `json:"name"`
	RowCount int64            `json:"row_count"`
	Columns  []ColumnAnalysis `json:"columns"`
	Error    string           `json:"error,omitempty"`
}

// SchemaAnalysis is the result of sampling every column of every table.
type SchemaAnalysis struct {
	Tables []TableAnalysis `json:"tables"`
}

// Recommendation returns the analysed recommendation for table.column.
func (a *SchemaAnalysis) Recommendation(table, column string) (TypeRecommendation, bool) {
	if a == nil {
		return TypeRecommendation{}, false
	}
	for _, t := range a.Tables {
		if t.Name != table {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == column {
				return c.Recommendation, true
			}
		}
	}
	return TypeRecommendation{}, false
}

// analyzeSchema samples each column and runs the type mapper. A failure
// aborts that table's analysis only; connection errors stop the walk.
func analyzeSchema(ctx context.Context, db *sql.DB, schema *Schema, overrides TypeOverrides, sampleSize int, log *Logger) (*SchemaAnalysis, error) {
	if log == nil {
		log = nopLogger()
	}
	out := &SchemaAnalysis{}
	for _, t := range schema.Tables {
		ta, err := analyzeTable(ctx, db, t, overrides, sampleSize)
		if err != nil {
			if isFatal(err) || ctx.Err() != nil {
				return nil, err
			}
			log.WithTable(t.SourceName).Warnw("analysis failed", "error", err)
			ta = TableAnalysis{Name: t.SourceName, Error: err.Error()}
		}
		out.Tables = append(out.Tables, ta)
	}
	return out, nil
}

func analyzeTable(ctx context.Context, db *sql.DB, t Table, overrides TypeOverrides, sampleSize int) (TableAnalysis, error) {
	ta := TableAnalysis{Name: t.SourceName}
	n, err := countSourceRows(ctx, db, t.SourceName)
	if err != nil {
		return ta, err
	}
	ta.RowCount = n

	for _, col := range t.Columns {
		obs, err := sampleColumn(ctx, db, t.SourceName, col.SourceName, sampleSize)
		if err != nil {
			return ta, err
		}
		ta.Columns = append(ta.Columns, ColumnAnalysis{
			Name:           col.SourceName,
			DeclaredType:   col.DeclaredType,
			Affinity:       col.Affinity,
			Nullable:       col.Nullable,
			PrimaryKey:     col.IsPrimaryKey(),
			Generated:      col.Generated,
			Observation:    obs,
			Recommendation: recommendType(col, obs, overrides),
		})
	}
	return ta, nil
}
