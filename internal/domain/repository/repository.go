package repository

import (
	"context"
	"strings"

	"github.com/flashteams/backend/internal/domain/entity"
)

// Predicate is a boolean filter over an entity's columns, forwarded verbatim
// to the query provider. The zero Predicate matches every row.
type Predicate struct {
	Query string
	Args  []any
}

func Where(query string, args ...any) Predicate {
	return Predicate{Query: query, Args: args}
}

// And joins predicates; zero predicates are skipped.
func And(preds ...Predicate) Predicate {
	var parts []string
	var args []any
	for _, p := range preds {
		if p.IsZero() {
			continue
		}
		parts = append(parts, "("+p.Query+")")
		args = append(args, p.Args...)
	}
	if len(parts) == 0 {
		return Predicate{}
	}
	if len(parts) == 1 {
		return Predicate{Query: strings.Trim(parts[0], "()"), Args: args}
	}
	return Predicate{Query: strings.Join(parts, " AND "), Args: args}
}

func (p Predicate) IsZero() bool {
	return strings.TrimSpace(p.Query) == ""
}

// Query is a lazily evaluated selection.
type Query[T entity.Entity] interface {
	List(ctx context.Context) ([]*T, error)
	First(ctx context.Context) (*T, error)
	Count(ctx context.Context) (int64, error)
}

// Repository is the generic CRUD and query contract over a unit of work.
//
// Tracked entities are attached to the unit of work: mutations on them are
// persisted by the next SaveChanges. Operations that stage work commit it
// immediately unless WithoutSave is passed.
type Repository[T entity.Entity] interface {
	Insert(ctx context.Context, e *T, opts ...Option) (*T, error)
	InsertMany(ctx context.Context, es []*T, opts ...Option) error
	Select(ctx context.Context, p Predicate, opts ...Option) (*T, error)
	SelectAll(p Predicate, opts ...Option) Query[T]
	SelectAllList(ctx context.Context, p Predicate, opts ...Option) ([]*T, error)
	Update(ctx context.Context, p Predicate, replacement *T, opts ...Option) (*T, error)
	Delete(ctx context.Context, p Predicate, opts ...Option) (bool, error)
	DeleteMany(ctx context.Context, p Predicate) error
	Exists(ctx context.Context, p Predicate, opts ...Option) (bool, error)
	GetTotalCount(ctx context.Context, p Predicate) (int64, error)
	SaveChanges(ctx context.Context) error
}
