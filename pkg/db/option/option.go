// Package option holds composable gorm query modifiers shared by repositories.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ  Operator = "="
	GTE Operator = ">="
	LTE Operator = "<="
	GT  Operator = ">"
	LT  Operator = "<"
	IN  Operator = "IN"
)

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a WHERE clause for the condition. Unknown operators are ignored.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		switch cond.Operator {
		case EQ, GTE, LTE, GT, LT:
			return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", field), cond.Value)
		default:
			return db
		}
	})
}

// QuerySortBy describes an ORDER BY restricted to an allow-list of columns.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithQuerySortBy builds a QuerySortBy from raw request values.
func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		SortBy:  strings.ToLower(strings.TrimSpace(sortBy)),
		OrderBy: strings.ToLower(strings.TrimSpace(orderBy)),
		Allow:   allow,
	}
}

// WithSortBy orders by the requested column, falling back to created_at desc.
func WithSortBy(s QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := "created_at"
		if s.SortBy != "" && s.Allow[s.SortBy] {
			column = s.SortBy
		}
		direction := "DESC"
		if s.OrderBy == "asc" {
			direction = "ASC"
		}
		return db.Order(fmt.Sprintf("%s %s", column, direction))
	})
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithOffset skips rows.
func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}
