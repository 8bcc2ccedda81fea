package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsupply/medsupply/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type receiptRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &receiptRepoPG{pool: pool}
}

func (r *receiptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const receiptCols = `id, requisition_id, facility, received_by, lines, notes, created_at, updated_at`

func (r *receiptRepoPG) scan(row pgx.Row) (*GoodsReceipt, error) {
	var (
		g     GoodsReceipt
		lines []byte
	)
	err := row.Scan(&g.ID, &g.RequisitionID, &g.Facility, &g.ReceivedBy, &lines, &g.Notes, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &g.Lines); err != nil {
			return nil, fmt.Errorf("decode lines: %w", err)
		}
	}
	return &g, nil
}

func (r *receiptRepoPG) Create(ctx context.Context, g *GoodsReceipt) error {
	lines, err := json.Marshal(g.Lines)
	if err != nil {
		return fmt.Errorf("encode lines: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO goods_receipt (id, requisition_id, facility, received_by, lines, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		g.ID, g.RequisitionID, g.Facility, g.ReceivedBy, lines, g.Notes, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r *receiptRepoPG) GetByID(ctx context.Context, id string) (*GoodsReceipt, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+receiptCols+` FROM goods_receipt WHERE id = $1`, id))
}

func (r *receiptRepoPG) Update(ctx context.Context, g *GoodsReceipt) error {
	lines, err := json.Marshal(g.Lines)
	if err != nil {
		return fmt.Errorf("encode lines: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE goods_receipt SET lines=$2, notes=$3, updated_at=$4 WHERE id = $1`,
		g.ID, lines, g.Notes, g.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *receiptRepoPG) ListByFacility(ctx context.Context, facility string, limit, offset int) ([]*GoodsReceipt, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipt
		WHERE $1 = '' OR lower(facility) = lower($1)`, facility).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+receiptCols+` FROM goods_receipt
		WHERE $1 = '' OR lower(facility) = lower($1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, facility, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*GoodsReceipt
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}
