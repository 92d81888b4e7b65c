package sandbox

import (
	"regexp"
	"strings"
)

// Rewrite replaces whole-word occurrences of the logical table name with
// the physical identifier wherever the name appears directly after FROM,
// JOIN, or INTO. Column references keep their names, and single-quoted
// string literals are never touched: the pattern is only applied to the
// unquoted segments of the query.
func Rewrite(queryText, logicalName, physicalName string) string {
	pattern := regexp.MustCompile(`(?i)\b(from|join|into)(\s+)` + regexp.QuoteMeta(logicalName) + `\b`)
	replacement := "${1}${2}" + physicalName

	var rewritten strings.Builder
	segmentStart := 0
	inLiteral := false
	for i := 0; i < len(queryText); i++ {
		if queryText[i] != '\'' {
			continue
		}
		if !inLiteral {
			rewritten.WriteString(pattern.ReplaceAllString(queryText[segmentStart:i], replacement))
			segmentStart = i
			inLiteral = true
			continue
		}
		// A doubled quote is an escaped quote inside the literal.
		if i+1 < len(queryText) && queryText[i+1] == '\'' {
			i++
			continue
		}
		rewritten.WriteString(queryText[segmentStart : i+1])
		segmentStart = i + 1
		inLiteral = false
	}
	tail := queryText[segmentStart:]
	if inLiteral {
		rewritten.WriteString(tail)
	} else {
		rewritten.WriteString(pattern.ReplaceAllString(tail, replacement))
	}
	return rewritten.String()
}
