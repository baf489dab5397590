package identity

import (
	"context"
	"regexp"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Operator tags a predicate clause. The specification is data, not code;
// the store adapter interprets it, which keeps the query engine agnostic of
// the backing storage.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "ne"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpIn             Operator = "in"
)

// Clause is a single (field, operator, value) predicate.
type Clause struct {
	Field string
	Op    Operator
	Value any
}

// Specification is a conjunction of clauses over a resource's fields.
type Specification struct {
	clauses []Clause
}

// NewSpecification returns an empty specification matching everything.
func NewSpecification() *Specification {
	return &Specification{}
}

// Where appends a clause; clauses combine with AND.
func (s *Specification) Where(field string, op Operator, value any) *Specification {
	s.clauses = append(s.clauses, Clause{Field: field, Op: op, Value: value})
	return s
}

// Clauses returns a copy of the predicate clauses.
func (s *Specification) Clauses() []Clause {
	out := make([]Clause, len(s.clauses))
	copy(out, s.clauses)
	return out
}

// Column names come from code, never from request payloads, but we still
// refuse anything that is not a plain identifier.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var sqlOperators = map[Operator]string{
	OpEqual:          "=",
	OpNotEqual:       "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
}

// Criteria interprets the specification into a select criteria the
// repositories can apply.
func (s *Specification) Criteria() (repository.SelectCriteria, error) {
	if s == nil {
		return func(q *bun.SelectQuery) *bun.SelectQuery { return q }, nil
	}

	for _, c := range s.clauses {
		if !identPattern.MatchString(c.Field) {
			return nil, errors.New("invalid specification field", errors.CategoryBadInput).
				WithMetadata(map[string]any{"field": c.Field})
		}
		if _, ok := sqlOperators[c.Op]; !ok && c.Op != OpIn {
			return nil, errors.New("invalid specification operator", errors.CategoryBadInput).
				WithMetadata(map[string]any{"operator": string(c.Op)})
		}
	}

	clauses := s.Clauses()

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range clauses {
			if c.Op == OpIn {
				q = q.Where("?TableAlias.? IN (?)", bun.Ident(c.Field), bun.In(c.Value))
				continue
			}
			q = q.Where("?TableAlias.? "+sqlOperators[c.Op]+" ?", bun.Ident(c.Field), c.Value)
		}
		return q
	}, nil
}

// Page carries the paging parameters of a query.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 100
)

// Normalize makes the page permissive for simple callers: values below one
// fall back to the defaults, sizes above max are clamped.
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	if maxSize < 1 {
		maxSize = MaxPageSize
	}
	if p.Number < 1 {
		p.Number = DefaultPageNumber
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Offset returns the number of records skipped before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PagedResult is a bounded slice of matches plus its paging descriptor.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	PageNumber int `json:"page_number"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagedResult computes the page descriptor for a slice of matches.
// A page beyond the last one yields an empty item list, not an error.
func NewPagedResult[T any](items []T, page Page, totalCount int) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if page.Size > 0 {
		totalPages = (totalCount + page.Size - 1) / page.Size
	}

	return &PagedResult[T]{
		Items:      items,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// queryBySpec filters the model set by the specification and slices out one
// page in stable id order. The count covers all matches, not just the page.
func queryBySpec[T any](ctx context.Context, db bun.IDB, items *[]T, spec *Specification, page Page) (int, error) {
	q := db.NewSelect().Model(items)

	if spec != nil {
		criteria, err := spec.Criteria()
		if err != nil {
			return 0, err
		}
		q = q.Apply(criteria)
	}

	total, err := q.
		Order("created_at ASC", "id ASC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)

	if err != nil && !repository.IsRecordNotFound(err) {
		return 0, err
	}

	return total, nil
}
