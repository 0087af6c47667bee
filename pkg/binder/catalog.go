package binder

import (
	"fmt"
	"sync"

	"golang.org/x/text/cases"
)

// DefaultSchema is the schema used for unqualified table names.
const DefaultSchema = "main"

// TypeKind classifies catalog types.
type TypeKind int

const (
	// TypeOther is any type that is not an enumeration.
	TypeOther TypeKind = iota
	// TypeEnum is an enumerated type with an ordered value domain.
	TypeEnum
)

// TypeInfo describes a named type.
type TypeInfo struct {
	Name       string
	Kind       TypeKind
	SQLType    string   // Underlying SQL type, e.g. "ENUM" or "VARCHAR"
	EnumValues []string // Domain in ordinal order (TypeEnum only)
}

// Catalog supplies table and type metadata.
// Implementations return errors wrapping ErrNotFound for unknown names.
type Catalog interface {
	TableColumns(schema, name string) ([]string, error)
	LookupType(name string) (*TypeInfo, error)
}

// Fold returns the case-folded form of an identifier.
// Identifiers that fold to the same string are the same name.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// MemoryCatalog is an in-memory Catalog.
type MemoryCatalog struct {
	mu     sync.RWMutex
	tables map[string][]string
	types  map[string]*TypeInfo
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables: make(map[string][]string),
		types:  make(map[string]*TypeInfo),
	}
}

func tableKey(schema, name string) string {
	if schema == "" {
		schema = DefaultSchema
	}
	return Fold(schema) + "." + Fold(name)
}

// AddTable registers a table and its columns in declaration order.
func (c *MemoryCatalog) AddTable(schema, name string, columns ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tableKey(schema, name)] = append([]string(nil), columns...)
}

// AddEnum registers an enumerated type with values in ordinal order.
func (c *MemoryCatalog) AddEnum(name string, values ...string) {
	c.AddType(TypeInfo{
		Name:       name,
		Kind:       TypeEnum,
		SQLType:    "ENUM",
		EnumValues: append([]string(nil), values...),
	})
}

// AddType registers a named type.
func (c *MemoryCatalog) AddType(info TypeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[Fold(info.Name)] = &info
}

// TableColumns returns the columns of a table.
func (c *MemoryCatalog) TableColumns(schema, name string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cols, ok := c.tables[tableKey(schema, name)]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, ErrNotFound)
	}
	return append([]string(nil), cols...), nil
}

// LookupType returns a named type.
func (c *MemoryCatalog) LookupType(name string) (*TypeInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.types[Fold(name)]
	if !ok {
		return nil, fmt.Errorf("type %q: %w", name, ErrNotFound)
	}
	cp := *info
	cp.EnumValues = append([]string(nil), info.EnumValues...)
	return &cp, nil
}
