package server

import (
	"fmt"
	"strings"
	"sync"
)

// memEngine keeps databases, tables and rows in memory
type memEngine struct {
	mu        sync.RWMutex
	databases map[string]*database
}

type database struct {
	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	mu   sync.RWMutex
	rows [][]interface{}
}

func newMemEngine() *memEngine {
	return &memEngine{databases: make(map[string]*database)}
}

// createDatabase creates name, an existing database is an error unless ifNotExists is set
func (e *memEngine) createDatabase(name string, ifNotExists bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.databases[name]; ok {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("database already exists: %s", name)
	}
	e.databases[name] = &database{tables: make(map[string]*table)}
	return nil
}

func (e *memEngine) hasDatabase(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.databases[name]
	return ok
}

// execute runs a bound statement in the context of the current database dbName
func (e *memEngine) execute(dbName string, stmt *statement, args []interface{}) (interface{}, error) {
	switch stmt.kind {
	case stmtCreateDatabase:
		return nil, e.createDatabase(stmt.name, stmt.ifNotExists)

	case stmtSelectValues:
		row, err := stmt.bind(args)
		if err != nil {
			return nil, err
		}
		return []interface{}{row}, nil

	case stmtCreateTable:
		db, name, err := e.resolve(dbName, stmt.name)
		if err != nil {
			return nil, err
		}
		db.mu.Lock()
		defer db.mu.Unlock()
		if _, ok := db.tables[name]; ok {
			if stmt.ifNotExists {
				return nil, nil
			}
			return nil, fmt.Errorf("table already exists: %s", stmt.name)
		}
		db.tables[name] = &table{}
		return nil, nil

	case stmtDropTable:
		db, name, err := e.resolve(dbName, stmt.name)
		if err != nil {
			return nil, err
		}
		db.mu.Lock()
		defer db.mu.Unlock()
		if _, ok := db.tables[name]; !ok {
			return nil, fmt.Errorf("table does not exist: %s", stmt.name)
		}
		delete(db.tables, name)
		return nil, nil
	}

	t, err := e.table(dbName, stmt.name)
	if err != nil {
		return nil, err
	}

	switch stmt.kind {
	case stmtInsert:
		row, err := stmt.bind(args)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.rows = append(t.rows, row)
		t.mu.Unlock()
		return nil, nil

	case stmtSelectAll:
		t.mu.RLock()
		defer t.mu.RUnlock()
		rows := make([]interface{}, len(t.rows))
		for i, row := range t.rows {
			rows[i] = append([]interface{}(nil), row...)
		}
		return rows, nil

	case stmtDelete:
		t.mu.Lock()
		t.rows = nil
		t.mu.Unlock()
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported statement kind %d", stmt.kind)
	}
}

// resolve returns the database of a possibly qualified table name and the bare table name
func (e *memEngine) resolve(dbName, tableName string) (*database, string, error) {
	if i := strings.IndexByte(tableName, '.'); i >= 0 {
		dbName, tableName = tableName[:i], tableName[i+1:]
	}
	if dbName == "" {
		return nil, "", fmt.Errorf("no database selected")
	}

	e.mu.RLock()
	db, ok := e.databases[dbName]
	e.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("database does not exist: %s", dbName)
	}
	return db, tableName, nil
}

// table looks up an existing table
func (e *memEngine) table(dbName, tableName string) (*table, error) {
	db, name, err := e.resolve(dbName, tableName)
	if err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("table does not exist: %s", tableName)
	}
	return t, nil
}
