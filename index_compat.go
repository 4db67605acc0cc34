package main

import "fmt"

// indexReviewReason reports why a translated index needs a human look.
func indexReviewReason(idx Index) (string, bool) {
	switch {
	case idx.HasExpression && idx.Partial:
		return "expression key-parts and a WHERE clause are rewritten textually", true
	case idx.HasExpression:
		return "expression key-parts are rewritten textually", true
	case idx.Partial:
		return "partial index WHERE clause is rewritten textually", true
	case len(idx.Columns) == 0 && idx.SQL == "":
		return "index has no plain column key-parts and no SQL; it will be skipped", true
	}
	return "", false
}

func indexCompatibilityFinding(schema *Schema) *Finding {
	if schema == nil {
		return nil
	}
	var details []FindingDetail
	for _, t := range schema.Tables {
		for _, idx := range t.Indexes {
			if reason, review := indexReviewReason(idx); review {
				details = append(details, FindingDetail{
					Table: t.SourceName,
					Note:  fmt.Sprintf("%s (%s): %s", idx.SourceName, idx.Name, reason),
				})
			}
		}
	}
	if len(details) == 0 {
		return nil
	}
	return &Finding{
		Type:     "indexes",
		Severity: SeverityLow,
		Message:  fmt.Sprintf("%d index(es) use expressions or WHERE clauses; review the generated SQL", len(details)),
		Details:  details,
	}
}
