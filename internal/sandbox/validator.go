package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// The validation policy is a denylist plus a SELECT-only allowlist rather
// than a grammar-level parse. Obfuscation through comments is cut off by
// rejecting comment markers outright.

var (
	writeKeywordPattern = regexp.MustCompile(`(?i)\b(drop|delete|update|insert|alter|create|truncate)\b`)
	execPattern         = regexp.MustCompile(`(?i)\b(exec|execute)\b`)
	storedProcPattern   = regexp.MustCompile(`(?i)\b(sp_|xp_)\w*`)
	unionPattern        = regexp.MustCompile(`(?i)\bunion\b`)
	havingPattern       = regexp.MustCompile(`(?i)\bhaving\b`)

	lineCommentPattern  = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// Validate applies the read-only security policy to raw query text before
// any rewriting or execution. A nil return means the query may proceed;
// otherwise the error carries the specific rejection reason.
func Validate(queryText string) error {
	if strings.TrimSpace(queryText) == "" {
		return fmt.Errorf("query is empty")
	}

	normalized := normalizeQuery(queryText)

	if match := writeKeywordPattern.FindString(normalized); match != "" {
		return fmt.Errorf("query contains disallowed keyword %q; only read-only queries are permitted", strings.ToUpper(match))
	}
	if match := execPattern.FindString(normalized); match != "" {
		return fmt.Errorf("query contains disallowed keyword %q", strings.ToUpper(match))
	}
	if match := storedProcPattern.FindString(normalized); match != "" {
		return fmt.Errorf("query references a stored procedure %q, which is not permitted", match)
	}
	if strings.Contains(queryText, "--") || strings.Contains(queryText, "/*") || strings.Contains(queryText, "*/") {
		return fmt.Errorf("query contains SQL comments, which are not permitted")
	}
	if unionPattern.MatchString(normalized) && havingPattern.MatchString(normalized) {
		return fmt.Errorf("query combines UNION and HAVING in a way that is not permitted")
	}
	if !strings.HasPrefix(strings.ToLower(normalized), "select") {
		return fmt.Errorf("only SELECT statements are permitted")
	}
	return nil
}

// normalizeQuery strips comments and collapses whitespace so keyword
// checks cannot be dodged by formatting. The original text is still
// checked separately for the presence of comment markers.
func normalizeQuery(queryText string) string {
	stripped := blockCommentPattern.ReplaceAllString(queryText, " ")
	stripped = lineCommentPattern.ReplaceAllString(stripped, " ")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
