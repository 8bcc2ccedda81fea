package requisition

import "context"

type Repository interface {
	Create(ctx context.Context, r *Requisition) error
	GetByID(ctx context.Context, id string) (*Requisition, error)
	// Update saves r if its Version still matches the stored row and bumps
	// it. A mismatch returns ErrConflict.
	Update(ctx context.Context, r *Requisition) error
	ListByFacility(ctx context.Context, facility string, limit, offset int) ([]*Requisition, int, error)
	// AllByFacility returns every record of facility, oldest first.
	AllByFacility(ctx context.Context, facility string) ([]*Requisition, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Requisition, int, error)
	Facilities(ctx context.Context) ([]string, error)
}

// Transactor runs fn inside a database transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
