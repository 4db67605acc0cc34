package main

import (
	"fmt"
	"strings"
)

func isGeneratedColumn(col Column) bool {
	return strings.HasSuffix(col.Generated, "GENERATED")
}

// generatedColumnFinding lists generated columns. Their values are copied as
// plain data; the generation expression is not recreated.
func generatedColumnFinding(schema *Schema) *Finding {
	if schema == nil {
		return nil
	}
	var details []FindingDetail
	for _, t := range schema.Tables {
		for _, col := range t.Columns {
			if !isGeneratedColumn(col) {
				continue
			}
			details = append(details, FindingDetail{
				Table:  t.SourceName,
				Column: col.SourceName,
				Note:   fmt.Sprintf("%s column will be materialized as plain data", col.Generated),
			})
		}
	}
	if len(details) == 0 {
		return nil
	}
	return &Finding{
		Type:     "generated_columns",
		Severity: SeverityLow,
		Message:  fmt.Sprintf("%d generated column(s) will be materialized; generation expressions are not recreated", len(details)),
		Details:  details,
	}
}
