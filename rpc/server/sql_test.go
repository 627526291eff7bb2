package server

import (
	"reflect"
	"testing"
)

// TestParseStatement tests the supported statement forms
func TestParseStatement(t *testing.T) {
	tests := []struct {
		sql     string
		kind    statementKind
		name    string
		numArgs int
	}{
		{"CREATE DATABASE trading", stmtCreateDatabase, "trading", 0},
		{"create database if not exists trading;", stmtCreateDatabase, "trading", 0},
		{"CREATE TABLE bar (sec int, tm timestamp, primary key(sec, tm))", stmtCreateTable, "bar", 0},
		{"CREATE TABLE IF NOT EXISTS trading.bar (x int)", stmtCreateTable, "trading.bar", 0},
		{"DROP TABLE bar", stmtDropTable, "bar", 0},
		{"INSERT INTO t VALUES(?)", stmtInsert, "t", 1},
		{"insert into t values (1, 'a, b', ?, ?)", stmtInsert, "t", 2},
		{"SELECT * FROM missing_table", stmtSelectAll, "missing_table", 0},
		{"SELECT 1, ?", stmtSelectValues, "", 1},
		{"DELETE FROM t", stmtDelete, "t", 0},
	}

	for _, tc := range tests {
		stmt, err := parseStatement(tc.sql)
		if err != nil {
			t.Errorf("Failed to parse %q: %v", tc.sql, err)
			continue
		}
		if stmt.kind != tc.kind || stmt.name != tc.name || stmt.numArgs != tc.numArgs {
			t.Errorf("%q: got kind=%d name=%q args=%d, expected kind=%d name=%q args=%d",
				tc.sql, stmt.kind, stmt.name, stmt.numArgs, tc.kind, tc.name, tc.numArgs)
		}
	}
}

// TestParseStatementErrors tests that unsupported input is rejected
func TestParseStatementErrors(t *testing.T) {
	for _, sql := range []string{
		"UPDATE t SET a=1",
		"SELECT a FROM t",
		"INSERT INTO t VALUES('unterminated)",
		"INSERT INTO t VALUES(1,,2)",
		"INSERT INTO t VALUES(abc)",
	} {
		if _, err := parseStatement(sql); err == nil {
			t.Errorf("Expected an error for %q", sql)
		}
	}
}

// TestBind tests that placeholders are replaced in order
func TestBind(t *testing.T) {
	stmt, err := parseStatement("INSERT INTO t VALUES(?, 'it''s', 2.5, ?, null, true)")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	row, err := stmt.bind([]interface{}{"first", 42})
	if err != nil {
		t.Fatalf("Failed to bind: %v", err)
	}

	expected := []interface{}{"first", "it's", 2.5, 42, nil, true}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("Expected %#v, got %#v", expected, row)
	}

	if _, err := stmt.bind([]interface{}{1}); err == nil {
		t.Error("Expected an error for a missing argument")
	}
}
