package sqlcgen

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const countDevices = `-- name: CountDevices :one
SELECT COUNT(*) FROM devices
`

func (q *Queries) CountDevices(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countDevices)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createDevice = `-- name: CreateDevice :one
INSERT INTO devices (id, name, device_type, state, created_at, updated_at)
VALUES ($1, $2, $3::device_type, $4::jsonb, $5, $5)
RETURNING id,
          name,
          device_type::text AS device_type,
          state,
          created_at,
          updated_at
`

type CreateDeviceParams struct {
	ID         uuid.UUID
	Name       string
	DeviceType string
	State      []byte
	Now        time.Time
}

func (q *Queries) CreateDevice(ctx context.Context, arg CreateDeviceParams) (Device, error) {
	row := q.db.QueryRow(ctx, createDevice, arg.ID, arg.Name, arg.DeviceType, arg.State, arg.Now)
	var i Device
	err := row.Scan(&i.ID, &i.Name, &i.DeviceType, &i.State, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getDevice = `-- name: GetDevice :one
SELECT id,
       name,
       device_type::text AS device_type,
       state,
       created_at,
       updated_at
FROM devices
WHERE id = $1
`

func (q *Queries) GetDevice(ctx context.Context, id uuid.UUID) (Device, error) {
	row := q.db.QueryRow(ctx, getDevice, id)
	var i Device
	err := row.Scan(&i.ID, &i.Name, &i.DeviceType, &i.State, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listDevices = `-- name: ListDevices :many
SELECT id,
       name,
       device_type::text AS device_type,
       state,
       created_at,
       updated_at
FROM devices
ORDER BY created_at DESC, id
`

func (q *Queries) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := q.db.Query(ctx, listDevices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Device
	for rows.Next() {
		var i Device
		if err := rows.Scan(&i.ID, &i.Name, &i.DeviceType, &i.State, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// state and updated_at change in one statement. updated_at uses the same
// clock as created_at and always moves at least one microsecond past the
// stored value, so it strictly increases in commit order even when $3 lags.
const updateDeviceState = `-- name: UpdateDeviceState :one
UPDATE devices
SET state = $2::jsonb,
    updated_at = GREATEST($3::timestamptz, updated_at + interval '1 microsecond')
WHERE id = $1
RETURNING id,
          name,
          device_type::text AS device_type,
          state,
          created_at,
          updated_at
`

type UpdateDeviceStateParams struct {
	ID    uuid.UUID
	State []byte
	Now   time.Time
}

func (q *Queries) UpdateDeviceState(ctx context.Context, arg UpdateDeviceStateParams) (Device, error) {
	row := q.db.QueryRow(ctx, updateDeviceState, arg.ID, arg.State, arg.Now)
	var i Device
	err := row.Scan(&i.ID, &i.Name, &i.DeviceType, &i.State, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const lockDeviceSeed = `-- name: LockDeviceSeed :exec
SELECT pg_advisory_xact_lock($1)
`

// LockDeviceSeed takes a transaction-scoped advisory lock. It must run inside
// a transaction, otherwise the lock is released immediately.
func (q *Queries) LockDeviceSeed(ctx context.Context, key int64) error {
	_, err := q.db.Exec(ctx, lockDeviceSeed, key)
	return err
}
