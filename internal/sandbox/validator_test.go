package sandbox

import (
	"strings"
	"testing"
)

func TestValidateAllowsReadOnlyQueries(t *testing.T) {
	allowed := []string{
		"SELECT * FROM data",
		"select id, name from data where id > 1",
		"SELECT COUNT(*) FROM data GROUP BY region",
		"SELECT a FROM data UNION SELECT b FROM data",
		"SELECT region, COUNT(*) FROM data GROUP BY region HAVING COUNT(*) > 1",
	}
	for _, query := range allowed {
		if err := Validate(query); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", query, err)
		}
	}
}

func TestValidateRejectsWriteKeywords(t *testing.T) {
	rejected := []string{
		"DROP TABLE data",
		"DELETE FROM data",
		"UPDATE data SET a = 1",
		"INSERT INTO data VALUES (1)",
		"ALTER TABLE data ADD COLUMN x INT",
		"CREATE TABLE other (a INT)",
		"TRUNCATE data",
		"SELECT * FROM data; DROP TABLE data",
	}
	for _, query := range rejected {
		err := Validate(query)
		if err == nil {
			t.Fatalf("Validate(%q) = nil, want rejection", query)
		}
		if !strings.Contains(err.Error(), "disallowed keyword") {
			t.Fatalf("Validate(%q) error = %v", query, err)
		}
	}
}

func TestValidateRejectsExecAndStoredProcedures(t *testing.T) {
	rejected := []string{
		"EXEC something",
		"SELECT * FROM data WHERE execute",
		"SELECT sp_help FROM data",
		"SELECT xp_cmdshell FROM data",
	}
	for _, query := range rejected {
		if err := Validate(query); err == nil {
			t.Fatalf("Validate(%q) = nil, want rejection", query)
		}
	}
}

func TestValidateRejectsComments(t *testing.T) {
	rejected := []string{
		"SELECT * FROM data -- hidden",
		"SELECT * /* comment */ FROM data",
		"SELECT * FROM data WHERE a = 1 --",
	}
	for _, query := range rejected {
		err := Validate(query)
		if err == nil {
			t.Fatalf("Validate(%q) = nil, want rejection", query)
		}
		if !strings.Contains(err.Error(), "comment") {
			t.Fatalf("Validate(%q) error = %v", query, err)
		}
	}
}

func TestValidateCatchesKeywordsHiddenByComments(t *testing.T) {
	// The comment marker alone rejects it, but the keyword must also be
	// visible to the denylist after normalization.
	if err := Validate("SELECT * FROM data; DR/**/OP TABLE data"); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestValidateRejectsUnionWithHaving(t *testing.T) {
	query := "SELECT a FROM data GROUP BY a HAVING COUNT(*) > 0 UNION SELECT b FROM data"
	err := Validate(query)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "UNION") {
		t.Fatalf("error = %v", err)
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	for _, query := range []string{"", "   ", "SHOW TABLES", "WITH x AS (SELECT 1) SELECT * FROM x"} {
		if err := Validate(query); err == nil {
			t.Fatalf("Validate(%q) = nil, want rejection", query)
		}
	}
}

func TestValidateScansStringLiteralsToo(t *testing.T) {
	// The denylist is textual and deliberately conservative: a keyword
	// inside a string literal still rejects the query.
	if err := Validate("SELECT 'drop table users' FROM data"); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestValidateKeywordMatchingIsWholeWord(t *testing.T) {
	// Column and table names that merely contain a keyword are fine.
	allowed := []string{
		"SELECT created_at FROM data",
		"SELECT updates FROM data",
		"SELECT dropped FROM data",
	}
	for _, query := range allowed {
		if err := Validate(query); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", query, err)
		}
	}
}
