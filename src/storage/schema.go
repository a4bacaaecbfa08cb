package storage

import (
	"fmt"
	"sort"
	"strings"
)

// Column describes one column of the OpenCode store schema.
type Column struct {
	Name    string
	SQLType string
	JSON    bool
}

// Table describes one table of the OpenCode store schema.
type Table struct {
	Name    string
	Columns []Column
}

// The schema registry mirrors the tables the OpenCode store writes. Every
// identifier that reaches SQL is validated against it first, so a refactor
// typo surfaces as a SchemaError naming the valid identifiers instead of an
// opaque driver error at execution time.
var (
	SessionTable = Table{Name: "session", Columns: []Column{
		{Name: "id", SQLType: "TEXT"},
		{Name: "parent_id", SQLType: "TEXT"},
		{Name: "project_id", SQLType: "TEXT"},
		{Name: "title", SQLType: "TEXT"},
		{Name: "directory", SQLType: "TEXT"},
		{Name: "time_created", SQLType: "INTEGER"},
		{Name: "time_updated", SQLType: "INTEGER"},
	}}

	MessageTable = Table{Name: "message", Columns: []Column{
		{Name: "id", SQLType: "TEXT"},
		{Name: "session_id", SQLType: "TEXT"},
		{Name: "time_created", SQLType: "INTEGER"},
		{Name: "time_updated", SQLType: "INTEGER"},
		{Name: "data", SQLType: "TEXT", JSON: true},
	}}

	PartTable = Table{Name: "part", Columns: []Column{
		{Name: "id", SQLType: "TEXT"},
		{Name: "message_id", SQLType: "TEXT"},
		{Name: "session_id", SQLType: "TEXT"},
		{Name: "time_created", SQLType: "INTEGER"},
		{Name: "data", SQLType: "TEXT", JSON: true},
	}}

	TodoTable = Table{Name: "todo", Columns: []Column{
		{Name: "session_id", SQLType: "TEXT"},
		{Name: "content", SQLType: "TEXT"},
		{Name: "status", SQLType: "TEXT"},
		{Name: "priority", SQLType: "TEXT"},
		{Name: "position", SQLType: "INTEGER"},
		{Name: "time_created", SQLType: "INTEGER"},
		{Name: "time_updated", SQLType: "INTEGER"},
	}}
)

var tables = map[string]Table{
	SessionTable.Name: SessionTable,
	MessageTable.Name: MessageTable,
	PartTable.Name:    PartTable,
	TodoTable.Name:    TodoTable,
}

// SchemaError reports a table or column name that is not part of the store
// schema. This is a programmer error: it fails the calling query, not the
// process.
type SchemaError struct {
	Table  string
	Column string
	Valid  []string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("unknown column %q in table %q, valid columns: %s",
			e.Column, e.Table, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("unknown table %q, valid tables: %s",
		e.Table, strings.Join(e.Valid, ", "))
}

func lookupTable(name string) (Table, error) {
	t, ok := tables[name]
	if !ok {
		valid := make([]string, 0, len(tables))
		for n := range tables {
			valid = append(valid, n)
		}
		sort.Strings(valid)
		return Table{}, &SchemaError{Table: name, Valid: valid}
	}
	return t, nil
}

func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) columnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t Table) validateColumn(name string) (string, error) {
	if c, ok := t.column(name); ok {
		return c.Name, nil
	}
	return "", &SchemaError{Table: t.Name, Column: name, Valid: t.columnNames()}
}
