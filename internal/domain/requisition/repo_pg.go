package requisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

type requisitionRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &requisitionRepoPG{pool: pool}
}

func (r *requisitionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requisitionCols = `id, kind, facility, requested_by, department, item_name, quantity,
	facility_stock, priority, status, expiry_date, delivered_qty, warehouse_qty,
	bulk_items, timeline, remarks, version, created_at, updated_at`

func (r *requisitionRepoPG) scan(row pgx.Row) (*Requisition, error) {
	var (
		q                       Requisition
		bulk, timeline, remarks []byte
	)
	err := row.Scan(&q.ID, &q.Kind, &q.Facility, &q.RequestedBy, &q.Department, &q.ItemName, &q.Quantity,
		&q.FacilityStock, &q.Priority, &q.Status, &q.ExpiryDate, &q.DeliveredQty, &q.WarehouseQty,
		&bulk, &timeline, &remarks, &q.Version, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(bulk, &q.BulkItems); err != nil {
		return nil, fmt.Errorf("decode bulk_items: %w", err)
	}
	if err := unmarshalJSON(timeline, &q.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if err := unmarshalJSON(remarks, &q.Remarks); err != nil {
		return nil, fmt.Errorf("decode remarks: %w", err)
	}
	return &q, nil
}

func (r *requisitionRepoPG) Create(ctx context.Context, q *Requisition) error {
	bulk, timeline, remarks, err := marshalTrail(q)
	if err != nil {
		return err
	}
	q.Version = 1
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO requisition (id, kind, facility, requested_by, department, item_name, quantity,
			facility_stock, priority, status, expiry_date, delivered_qty, warehouse_qty,
			bulk_items, timeline, remarks, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		q.ID, q.Kind, q.Facility, q.RequestedBy, q.Department, q.ItemName, q.Quantity,
		q.FacilityStock, q.Priority, q.Status, q.ExpiryDate, q.DeliveredQty, q.WarehouseQty,
		bulk, timeline, remarks, q.Version, q.CreatedAt, q.UpdatedAt)
	return err
}

func (r *requisitionRepoPG) GetByID(ctx context.Context, id string) (*Requisition, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+requisitionCols+` FROM requisition WHERE id = $1`, id))
}

func (r *requisitionRepoPG) Update(ctx context.Context, q *Requisition) error {
	_, timeline, remarks, err := marshalTrail(q)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE requisition SET facility_stock=$3, priority=$4, status=$5, delivered_qty=$6,
			warehouse_qty=$7, timeline=$8, remarks=$9, version=version+1, updated_at=$10
		WHERE id = $1 AND version = $2`,
		q.ID, q.Version, q.FacilityStock, q.Priority, q.Status, q.DeliveredQty,
		q.WarehouseQty, timeline, remarks, q.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	q.Version++
	return nil
}

func (r *requisitionRepoPG) ListByFacility(ctx context.Context, facility string, limit, offset int) ([]*Requisition, int, error) {
	return r.Search(ctx, map[string]string{"facility": facility}, limit, offset)
}

func (r *requisitionRepoPG) AllByFacility(ctx context.Context, facility string) ([]*Requisition, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+requisitionCols+` FROM requisition
		WHERE lower(facility) = lower($1) ORDER BY created_at ASC, id ASC`, facility)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

// searchColumns maps query parameters to exact-match columns.
var searchColumns = map[string]string{
	"facility": "lower(facility)",
	"status":   "lower(status)",
	"priority": "lower(priority)",
	"kind":     "kind",
}

func (r *requisitionRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Requisition, int, error) {
	var (
		where []string
		args  []interface{}
	)
	for key, col := range searchColumns {
		v, ok := params[key]
		if !ok || v == "" {
			continue
		}
		args = append(args, strings.ToLower(v))
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if v := params["item"]; v != "" {
		args = append(args, "%"+v+"%")
		where = append(where, fmt.Sprintf("item_name ILIKE $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM requisition`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+requisitionCols+` FROM requisition%s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)+1, len(args)+2), dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *requisitionRepoPG) Facilities(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT facility FROM requisition ORDER BY facility`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *requisitionRepoPG) collect(rows pgx.Rows) ([]*Requisition, error) {
	var items []*Requisition
	for rows.Next() {
		q, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func marshalTrail(q *Requisition) (bulk, timeline, remarks []byte, err error) {
	if bulk, err = json.Marshal(nonNil(q.BulkItems)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode bulk_items: %w", err)
	}
	if timeline, err = json.Marshal(nonNil(q.Timeline)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode timeline: %w", err)
	}
	if remarks, err = json.Marshal(nonNil(q.Remarks)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode remarks: %w", err)
	}
	return bulk, timeline, remarks, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func unmarshalJSON(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
