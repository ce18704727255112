package client

import "strings"

// QueryHint appends a troubleshooting tip to a query error message when it
// recognises the failure. Matching is case-sensitive.
func QueryHint(msg string) string {
	switch {
	case strings.Contains(msg, "too many columns") || strings.Contains(msg, "column limit"):
		return msg + "\n\nTip: Try selecting fewer columns or use SELECT Id, Name, ... instead of SELECT *."
	case strings.Contains(msg, "memory") || strings.Contains(msg, "timeout"):
		return msg + "\n\nTip: Try reducing the record limit or adding WHERE clauses to filter results."
	case strings.Contains(msg, "MALFORMED_QUERY"):
		return msg + "\n\nTip: Check your SOQL syntax, especially field names and relationships."
	}
	return msg
}
