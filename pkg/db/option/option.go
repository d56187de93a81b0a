// Package option provides composable query options for the generic
// repository: comparison conditions, sorting and limits that map onto
// gorm clauses.
package option

import (
	"fmt"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm query before it executes.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	LIKE Operator = "LIKE"
)

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", o.cond.Field, o.cond.Operator), o.cond.Value)
}

// ApplyOperator adds a comparison condition to the query.
func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

// QuerySortBy declares the requested sort and the allow-list of
// sortable columns. Fields outside Allow fall back to created_at.
type QuerySortBy struct {
	Allow map[string]bool
	Field string
	Desc  bool
}

type sortOption struct {
	sort QuerySortBy
}

func (o sortOption) Apply(db *gorm.DB) *gorm.DB {
	field := o.sort.Field
	if field == "" || !o.sort.Allow[field] {
		field = "created_at"
	}
	direction := "ASC"
	if o.sort.Desc || o.sort.Field == "" {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", field, direction))
}

// WithSortBy adds ordering constrained to an allow-list.
func WithSortBy(sort QuerySortBy) QueryOption {
	return sortOption{sort: sort}
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	if o.limit <= 0 {
		return db
	}
	return db.Limit(o.limit)
}

// WithLimit caps the number of rows returned.
func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}
