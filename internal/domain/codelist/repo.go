package codelist

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores codelists. Update runs fn with exclusive access to the
// stored codelist; fn's error aborts the update and leaves the stored
// codelist unchanged.
type Repository interface {
	Create(ctx context.Context, cl *CodeList) error
	Get(ctx context.Context, id uuid.UUID) (*CodeList, error)
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*CodeList, int, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*CodeList) error) (*CodeList, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
