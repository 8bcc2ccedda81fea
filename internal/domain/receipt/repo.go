package receipt

import "context"

type Repository interface {
	Create(ctx context.Context, g *GoodsReceipt) error
	GetByID(ctx context.Context, id string) (*GoodsReceipt, error)
	Update(ctx context.Context, g *GoodsReceipt) error
	ListByFacility(ctx context.Context, facility string, limit, offset int) ([]*GoodsReceipt, int, error)
}
