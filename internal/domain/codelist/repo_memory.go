package codelist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps codelists in process memory. It is the
// synchronisation point for shared codelists: reads return deep copies and
// Update mutates a copy under the write lock, swapping it in only when fn
// succeeds.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*CodeList
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]*CodeList)}
}

func (r *MemoryRepository) Create(_ context.Context, cl *CodeList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[cl.ID()]; ok {
		return newError(ErrConflict, "codelist %s already exists", cl.ID())
	}
	r.items[cl.ID()] = cl.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*CodeList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cl, ok := r.items[id]
	if !ok {
		return nil, newError(ErrNotFound, "codelist %s not found", id)
	}
	return cl.Clone(), nil
}

// List supports the search params "name" (case-insensitive substring),
// "type" and "tag".
func (r *MemoryRepository) List(_ context.Context, params map[string]string, limit, offset int) ([]*CodeList, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*CodeList
	for _, cl := range r.items {
		if matches(cl, params) {
			matched = append(matched, cl)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := matched[i].metadata.Provenance.CreatedDate, matched[j].metadata.Provenance.CreatedDate
		if ci.Equal(cj) {
			return matched[i].ID().String() < matched[j].ID().String()
		}
		return ci.Before(cj)
	})

	total := len(matched)
	if offset >= total {
		return []*CodeList{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]*CodeList, 0, end-offset)
	for _, cl := range matched[offset:end] {
		out = append(out, cl.Clone())
	}
	return out, total, nil
}

func matches(cl *CodeList, params map[string]string) bool {
	for k, v := range params {
		switch k {
		case "name":
			if !strings.Contains(strings.ToLower(cl.Name()), strings.ToLower(v)) {
				return false
			}
		case "type":
			system, err := ParseCodingSystem(v)
			if err != nil || system != cl.Type() {
				return false
			}
		case "tag":
			if !cl.metadata.CategorisationAndUsage.Tags.Has(v) {
				return false
			}
		}
	}
	return true
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, fn func(*CodeList) error) (*CodeList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.items[id]
	if !ok {
		return nil, newError(ErrNotFound, "codelist %s not found", id)
	}
	working := cl.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.items[id] = working
	return working.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return newError(ErrNotFound, "codelist %s not found", id)
	}
	delete(r.items, id)
	return nil
}
