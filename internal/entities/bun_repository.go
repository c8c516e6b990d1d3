package entities

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewEntityRepository builds the generic repository for Entity records.
func NewEntityRepository(db *bun.DB) repository.Repository[*Entity] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Entity]{
		NewRecord: func() *Entity { return &Entity{} },
		GetID: func(e *Entity) uuid.UUID {
			return e.ID
		},
		SetID: func(e *Entity, id uuid.UUID) {
			e.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(e *Entity) string {
			if e == nil {
				return ""
			}
			return e.ID.String()
		},
	})
}

// NewRevisionRepository builds the generic repository for Revision records.
func NewRevisionRepository(db *bun.DB) repository.Repository[*Revision] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Revision]{
		NewRecord: func() *Revision { return &Revision{} },
		GetID: func(r *Revision) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Revision, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *Revision) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})
}

// BunRepository persists entities and revisions through go-repository-bun.
type BunRepository struct {
	base      repository.Repository[*Entity]
	repo      repository.Repository[*Entity]
	revisions repository.Repository[*Revision]
	now       func() time.Time
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache wraps point reads and writes with the repository
// cache. Due queries always go to the database.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewEntityRepository(db)
	return &BunRepository{
		base:      base,
		repo:      wrapWithCache(base, cacheService, keySerializer),
		revisions: NewRevisionRepository(db),
		now:       time.Now,
	}
}

func (r *BunRepository) Create(ctx context.Context, record *Entity) (*Entity, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}
	if record.EntityType == "" {
		return nil, ErrEntityTypeRequired
	}
	rec := record.Clone()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.RevisionLog = ""
	normalize(rec)

	created, err := r.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("entity repository error: %w", err)
	}
	return created, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entity, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "entity", id.String())
	}
	return result, nil
}

// Update persists record. A staged RevisionLog is written as a revision row
// after the entity itself.
func (r *BunRepository) Update(ctx context.Context, record *Entity) (*Entity, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}
	rec := record.Clone()
	message := rec.RevisionLog
	rec.RevisionLog = ""
	rec.UpdatedAt = r.now().UTC()
	normalize(rec)

	updated, err := r.repo.Update(ctx, rec)
	if err != nil {
		return nil, mapRepositoryError(err, "entity", rec.ID.String())
	}
	if message != "" {
		if _, err := r.revisions.Create(ctx, NewRevision(rec, message, rec.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("entity revision error: %w", err)
		}
	}
	return updated, nil
}

func (r *BunRepository) List(ctx context.Context) ([]*Entity, error) {
	records, _, err := r.base.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.id ASC")
		}),
	)
	return records, err
}

func (r *BunRepository) ListDue(ctx context.Context, query DueQuery) ([]*Entity, error) {
	if err := query.validate(); err != nil {
		return nil, err
	}
	column := bun.Ident(query.column())
	until := query.Until.UTC()

	records, _, err := r.base.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.entity_type = ?", query.EntityType).
				Where("?TableAlias.? IS NOT NULL", column).
				Where("?TableAlias.? <= ?", column, until).
				OrderExpr("?TableAlias.? ASC", column).
				OrderExpr("?TableAlias.id ASC")
		}),
	)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *BunRepository) CreateRevision(ctx context.Context, record *Revision) (*Revision, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}
	rec := *record
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	return r.revisions.Create(ctx, &rec)
}

func (r *BunRepository) ListRevisions(ctx context.Context, entityID uuid.UUID) ([]*Revision, error) {
	records, _, err := r.revisions.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.entity_id = ?", entityID).
				OrderExpr("?TableAlias.created_at ASC")
		}),
	)
	return records, err
}

// EnsureSchema creates the entity and revision tables when missing.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{(*Entity)(nil), (*Revision)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("entities: create table: %w", err)
		}
	}
	return nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{
			Resource: resource,
			Key:      key,
		}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
