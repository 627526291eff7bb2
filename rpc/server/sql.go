package server

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type statementKind int

const (
	stmtCreateDatabase statementKind = iota
	stmtCreateTable
	stmtDropTable
	stmtInsert
	stmtSelectAll
	stmtSelectValues
	stmtDelete
)

// placeholder marks a positional argument in a value list
type placeholder struct {
	index int
}

// statement is a parsed SQL statement of the supported subset
type statement struct {
	kind        statementKind
	name        string // database or table name
	ifNotExists bool
	// values of an INSERT or SELECT value list, literals or placeholders
	values []interface{}
	// numArgs is the number of placeholders
	numArgs int
}

var (
	reCreateDatabase = regexp.MustCompile(`(?is)^CREATE\s+DATABASE\s+(IF\s+NOT\s+EXISTS\s+)?(\w+)$`)
	reCreateTable    = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?(\w+(?:\.\w+)?)\s*\(.*\)$`)
	reDropTable      = regexp.MustCompile(`(?is)^DROP\s+TABLE\s+(\w+(?:\.\w+)?)$`)
	reInsert         = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(\w+(?:\.\w+)?)\s+VALUES\s*\((.*)\)$`)
	reSelectAll      = regexp.MustCompile(`(?is)^SELECT\s+\*\s+FROM\s+(\w+(?:\.\w+)?)$`)
	reSelectValues   = regexp.MustCompile(`(?is)^SELECT\s+(.+)$`)
	reDelete         = regexp.MustCompile(`(?is)^DELETE\s+FROM\s+(\w+(?:\.\w+)?)$`)
)

// parseStatement parses sql into a statement.
// Only a tiny subset of the opentick dialect is understood.
func parseStatement(sql string) (*statement, error) {
	sql = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))

	if m := reCreateDatabase.FindStringSubmatch(sql); m != nil {
		return &statement{kind: stmtCreateDatabase, name: m[2], ifNotExists: m[1] != ""}, nil
	}
	if m := reCreateTable.FindStringSubmatch(sql); m != nil {
		return &statement{kind: stmtCreateTable, name: m[2], ifNotExists: m[1] != ""}, nil
	}
	if m := reDropTable.FindStringSubmatch(sql); m != nil {
		return &statement{kind: stmtDropTable, name: m[1]}, nil
	}
	if m := reInsert.FindStringSubmatch(sql); m != nil {
		values, n, err := parseValues(m[2])
		if err != nil {
			return nil, err
		}
		return &statement{kind: stmtInsert, name: m[1], values: values, numArgs: n}, nil
	}
	if m := reSelectAll.FindStringSubmatch(sql); m != nil {
		return &statement{kind: stmtSelectAll, name: m[1]}, nil
	}
	if m := reDelete.FindStringSubmatch(sql); m != nil {
		return &statement{kind: stmtDelete, name: m[1]}, nil
	}
	if m := reSelectValues.FindStringSubmatch(sql); m != nil && !strings.Contains(strings.ToUpper(m[1]), " FROM ") {
		values, n, err := parseValues(m[1])
		if err != nil {
			return nil, err
		}
		return &statement{kind: stmtSelectValues, values: values, numArgs: n}, nil
	}

	return nil, fmt.Errorf("unsupported statement: %s", sql)
}

// bind replaces the placeholders of the value list with args
func (s *statement) bind(args []interface{}) ([]interface{}, error) {
	if len(args) != s.numArgs {
		return nil, fmt.Errorf("expected %d arguments, got %d", s.numArgs, len(args))
	}
	row := make([]interface{}, len(s.values))
	for i, v := range s.values {
		if p, ok := v.(placeholder); ok {
			row[i] = args[p.index]
		} else {
			row[i] = v
		}
	}
	return row, nil
}

// parseValues parses a comma separated list of literals and placeholders
func parseValues(list string) ([]interface{}, int, error) {
	tokens, err := splitValues(list)
	if err != nil {
		return nil, 0, err
	}

	values := make([]interface{}, 0, len(tokens))
	numArgs := 0
	for _, tok := range tokens {
		switch {
		case tok == "?":
			values = append(values, placeholder{index: numArgs})
			numArgs++
		case strings.HasPrefix(tok, "'"):
			values = append(values, strings.ReplaceAll(tok[1:len(tok)-1], "''", "'"))
		case strings.EqualFold(tok, "null"):
			values = append(values, nil)
		case strings.EqualFold(tok, "true"), strings.EqualFold(tok, "false"):
			values = append(values, strings.EqualFold(tok, "true"))
		default:
			if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
				values = append(values, i)
			} else if f, err := strconv.ParseFloat(tok, 64); err == nil {
				values = append(values, f)
			} else {
				return nil, 0, fmt.Errorf("invalid value: %s", tok)
			}
		}
	}
	return values, numArgs, nil
}

// splitValues splits list at commas outside of quoted strings
func splitValues(list string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	quoted := false

	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case c == '\'' && quoted && i+1 < len(list) && list[i+1] == '\'':
			cur.WriteString("''")
			i++
		case c == '\'':
			quoted = !quoted
			cur.WriteByte(c)
		case c == ',' && !quoted:
			tokens = append(tokens, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string in %q", list)
	}
	tokens = append(tokens, strings.TrimSpace(cur.String()))

	for _, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("empty value in %q", list)
		}
	}
	return tokens, nil
}
