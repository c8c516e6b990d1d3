package di

import (
	"context"
	"sync"

	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/google/uuid"
)

// entityRepositoryProxy routes calls to the current entity repository
// implementation so storage can be swapped after the coordinator is built.
type entityRepositoryProxy struct {
	mu   sync.RWMutex
	repo entities.Repository
}

var _ entities.Repository = (*entityRepositoryProxy)(nil)

func newEntityRepositoryProxy(repo entities.Repository) *entityRepositoryProxy {
	return &entityRepositoryProxy{repo: repo}
}

func (p *entityRepositoryProxy) swap(repo entities.Repository) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if repo != nil {
		p.repo = repo
	}
}

func (p *entityRepositoryProxy) current() entities.Repository {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.repo
}

func (p *entityRepositoryProxy) Create(ctx context.Context, record *entities.Entity) (*entities.Entity, error) {
	return p.current().Create(ctx, record)
}

func (p *entityRepositoryProxy) GetByID(ctx context.Context, id uuid.UUID) (*entities.Entity, error) {
	return p.current().GetByID(ctx, id)
}

func (p *entityRepositoryProxy) Update(ctx context.Context, record *entities.Entity) (*entities.Entity, error) {
	return p.current().Update(ctx, record)
}

func (p *entityRepositoryProxy) List(ctx context.Context) ([]*entities.Entity, error) {
	return p.current().List(ctx)
}

func (p *entityRepositoryProxy) ListDue(ctx context.Context, query entities.DueQuery) ([]*entities.Entity, error) {
	return p.current().ListDue(ctx, query)
}
