package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/domain/repository"
)

// Repository is the gorm-backed repository.Repository. Every Repository
// created on the same UnitOfWork shares its tracked entities and commits
// them together.
type Repository[T entity.Entity] struct {
	uow *UnitOfWork
}

func NewRepository[T entity.Entity](uow *UnitOfWork) *Repository[T] {
	return &Repository[T]{uow: uow}
}

var (
	_ repository.Repository[entity.User]         = (*Repository[entity.User])(nil)
	_ repository.Repository[entity.Message]      = (*Repository[entity.Message])(nil)
	_ repository.Repository[entity.UserActivity] = (*Repository[entity.UserActivity])(nil)
)

func (r *Repository[T]) scope(ctx context.Context, p repository.Predicate, includes []string) *gorm.DB {
	q := r.uow.db.WithContext(ctx).Model(new(T))
	if !p.IsZero() {
		q = q.Where(p.Query, p.Args...)
	}
	for _, name := range includes {
		q = q.Preload(name)
	}
	return q
}

func (r *Repository[T]) commit(ctx context.Context, o repository.Options) error {
	if !o.Save {
		return nil
	}
	return r.uow.SaveChanges(ctx)
}

func (r *Repository[T]) Insert(ctx context.Context, e *T, opts ...repository.Option) (*T, error) {
	o := repository.Apply(repository.Options{Save: true}, opts...)
	r.uow.add(e)
	if err := r.commit(ctx, o); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repository[T]) InsertMany(ctx context.Context, es []*T, opts ...repository.Option) error {
	o := repository.Apply(repository.Options{Save: true}, opts...)
	for _, e := range es {
		r.uow.add(e)
	}
	return r.commit(ctx, o)
}

func (r *Repository[T]) Select(ctx context.Context, p repository.Predicate, opts ...repository.Option) (*T, error) {
	o := repository.Apply(repository.Options{Track: true}, opts...)
	return r.first(ctx, p, o)
}

func (r *Repository[T]) first(ctx context.Context, p repository.Predicate, o repository.Options) (*T, error) {
	var out T
	err := r.scope(ctx, p, o.Includes).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if o.ThrowIfMissing {
			return nil, domerrors.NotFound[T]()
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Track {
		return attach(r.uow, &out), nil
	}
	return &out, nil
}

func (r *Repository[T]) SelectAll(p repository.Predicate, opts ...repository.Option) repository.Query[T] {
	return &query[T]{repo: r, pred: p, opts: repository.Apply(repository.Options{Track: true}, opts...)}
}

func (r *Repository[T]) SelectAllList(ctx context.Context, p repository.Predicate, opts ...repository.Option) ([]*T, error) {
	return r.SelectAll(p, opts...).List(ctx)
}

// Update loads the single row matching p and overwrites it with replacement,
// keeping the stored identity.
func (r *Repository[T]) Update(ctx context.Context, p repository.Predicate, replacement *T, opts ...repository.Option) (*T, error) {
	o := repository.Apply(repository.Options{Save: true, ThrowIfMissing: true}, opts...)
	current, err := r.first(ctx, p, repository.Options{Track: true, ThrowIfMissing: o.ThrowIfMissing, Includes: o.Includes})
	if err != nil || current == nil {
		return nil, err
	}
	copyFields(current, replacement)
	r.uow.markModified(current)
	if err := r.commit(ctx, o); err != nil {
		return nil, err
	}
	return current, nil
}

func (r *Repository[T]) Delete(ctx context.Context, p repository.Predicate, opts ...repository.Option) (bool, error) {
	o := repository.Apply(repository.Options{Save: true}, opts...)
	current, err := r.first(ctx, p, repository.Options{Track: true, ThrowIfMissing: o.ThrowIfMissing})
	if err != nil || current == nil {
		return false, err
	}
	r.remove(current)
	if err := r.commit(ctx, o); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository[T]) remove(e *T) {
	if sd, ok := any(e).(entity.SoftDeletable); ok {
		sd.MarkDeleted()
		r.uow.markModified(e)
		return
	}
	r.uow.markDeleted(e)
}

// DeleteMany flags every match of a soft-deletable type and commits; other
// types are removed with a single statement that bypasses tracking.
func (r *Repository[T]) DeleteMany(ctx context.Context, p repository.Predicate) error {
	if _, ok := any(new(T)).(entity.SoftDeletable); ok {
		rows, err := r.SelectAllList(ctx, p)
		if err != nil {
			return err
		}
		for _, e := range rows {
			r.remove(e)
		}
		return r.uow.SaveChanges(ctx)
	}

	q := r.uow.db.WithContext(ctx)
	if p.IsZero() {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	} else {
		q = q.Where(p.Query, p.Args...)
	}
	return q.Delete(new(T)).Error
}

func (r *Repository[T]) Exists(ctx context.Context, p repository.Predicate, opts ...repository.Option) (bool, error) {
	o := repository.Apply(repository.Options{}, opts...)
	n, err := r.GetTotalCount(ctx, p)
	if err != nil {
		return false, err
	}
	if n == 0 && o.ThrowIfMissing {
		return false, domerrors.NotFound[T]()
	}
	return n > 0, nil
}

func (r *Repository[T]) GetTotalCount(ctx context.Context, p repository.Predicate) (int64, error) {
	var n int64
	err := r.scope(ctx, p, nil).Count(&n).Error
	return n, err
}

func (r *Repository[T]) SaveChanges(ctx context.Context) error {
	return r.uow.SaveChanges(ctx)
}

type query[T entity.Entity] struct {
	repo *Repository[T]
	pred repository.Predicate
	opts repository.Options
}

func (q *query[T]) List(ctx context.Context) ([]*T, error) {
	var rows []*T
	if err := q.repo.scope(ctx, q.pred, q.opts.Includes).Find(&rows).Error; err != nil {
		return nil, err
	}
	if q.opts.Track {
		for i, e := range rows {
			rows[i] = attach(q.repo.uow, e)
		}
	}
	return rows, nil
}

func (q *query[T]) First(ctx context.Context) (*T, error) {
	return q.repo.first(ctx, q.pred, q.opts)
}

func (q *query[T]) Count(ctx context.Context) (int64, error) {
	return q.repo.GetTotalCount(ctx, q.pred)
}
