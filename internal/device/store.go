package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"dummy_device/device-go/internal/db"
	"dummy_device/device-go/internal/metrics"
	"dummy_device/device-go/internal/sqlcgen"
)

// Querier is the subset of sqlcgen.Queries the store depends on.
type Querier interface {
	CountDevices(ctx context.Context) (int64, error)
	ListDevices(ctx context.Context) ([]sqlcgen.Device, error)
	GetDevice(ctx context.Context, id uuid.UUID) (sqlcgen.Device, error)
	CreateDevice(ctx context.Context, arg sqlcgen.CreateDeviceParams) (sqlcgen.Device, error)
	UpdateDeviceState(ctx context.Context, arg sqlcgen.UpdateDeviceStateParams) (sqlcgen.Device, error)
	LockDeviceSeed(ctx context.Context, key int64) error
}

// Transactor runs fn against a Querier bound to one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// Store is the persistence boundary for device records. It is safe for
// concurrent use; all serialisation is left to Postgres.
type Store struct {
	log     zerolog.Logger
	q       Querier
	tx      Transactor
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStore(log zerolog.Logger, q Querier, tx Transactor, m *metrics.Metrics) *Store {
	return &Store{
		log:     log.With().Str("component", "device_store").Logger(),
		q:       q,
		tx:      tx,
		metrics: m,
		now:     time.Now,
	}
}

// NewPostgresStore binds a Store to a connection pool.
func NewPostgresStore(log zerolog.Logger, pool *db.Pool, m *metrics.Metrics) *Store {
	return NewStore(log, pool.Queries(), poolTransactor{pool: pool}, m)
}

type poolTransactor struct {
	pool *db.Pool
}

func (p poolTransactor) InTx(ctx context.Context, fn func(q Querier) error) error {
	return p.pool.InTx(ctx, func(q *sqlcgen.Queries) error { return fn(q) })
}

// List returns every device, newest first. A row that cannot be decoded fails
// the whole call.
func (s *Store) List(ctx context.Context) (_ []Device, err error) {
	defer s.observe("list", &err)

	rows, err := s.q.ListDevices(ctx)
	if err != nil {
		return nil, s.storageErr("list devices", err)
	}

	out := make([]Device, 0, len(rows))
	for _, row := range rows {
		d, err := fromRow(row)
		if err != nil {
			return nil, s.storageErr("decode device "+row.ID.String(), err)
		}
		out = append(out, d)
	}

	s.log.Debug().Int("count", len(out)).Msg("listed devices")
	return out, nil
}

// Get returns the device with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (_ Device, err error) {
	defer s.observe("get", &err)

	row, err := s.q.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Device{}, s.storageErr("get device "+id.String(), err)
	}

	d, err := fromRow(row)
	if err != nil {
		return Device{}, s.storageErr("decode device "+id.String(), err)
	}
	return d, nil
}

// Create inserts a new device with a fresh id, the default state for its
// type and a single timestamp for both created_at and updated_at. The
// returned record is the row as stored.
func (s *Store) Create(ctx context.Context, name string, t Type) (_ Device, err error) {
	defer s.observe("create", &err)

	if strings.TrimSpace(name) == "" {
		return Device{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !t.Valid() {
		return Device{}, fmt.Errorf("%w: unknown device type %s", ErrInvalidInput, t)
	}

	d, err := s.insert(ctx, s.q, name, t, DefaultState(t))
	if err != nil {
		return Device{}, err
	}

	s.log.Info().
		Str("id", d.ID.String()).
		Str("name", d.Name).
		Str("device_type", d.Type.String()).
		Msg("device created")
	return d, nil
}

// UpdateState replaces the state document wholesale and refreshes updated_at
// in one statement. updated_at never stays put or moves backwards. Unknown
// ids return ErrNotFound and insert nothing.
func (s *Store) UpdateState(ctx context.Context, id uuid.UUID, state State) (_ Device, err error) {
	defer s.observe("update_state", &err)

	state, err = ParseState(state)
	if err != nil {
		return Device{}, err
	}

	row, err := s.q.UpdateDeviceState(ctx, sqlcgen.UpdateDeviceStateParams{
		ID:    id,
		State: []byte(state),
		Now:   s.now(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Device{}, s.storageErr("update device state "+id.String(), err)
	}

	d, err := fromRow(row)
	if err != nil {
		return Device{}, s.storageErr("decode device "+id.String(), err)
	}

	s.log.Info().
		Str("id", d.ID.String()).
		RawJSON("state", []byte(d.State)).
		Msg("device state updated")
	return d, nil
}

func (s *Store) insert(ctx context.Context, q Querier, name string, t Type, state State) (Device, error) {
	id := NewID()
	row, err := q.CreateDevice(ctx, sqlcgen.CreateDeviceParams{
		ID:         id,
		Name:       name,
		DeviceType: t.String(),
		State:      []byte(state),
		Now:        s.now(),
	})
	if err != nil {
		return Device{}, s.storageErr("create device "+name, err)
	}

	d, err := fromRow(row)
	if err != nil {
		return Device{}, s.storageErr("decode device "+id.String(), err)
	}
	return d, nil
}

func (s *Store) storageErr(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("device store failure")
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func (s *Store) observe(op string, errp *error) {
	s.metrics.ObserveStoreOperation(op, outcome(*errp))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func fromRow(row sqlcgen.Device) (Device, error) {
	// Not ParseType: a bad stored value is a storage failure, not client input.
	var t Type
	for _, candidate := range Types {
		if candidate.String() == row.DeviceType {
			t = candidate
		}
	}
	if !t.Valid() {
		return Device{}, fmt.Errorf("unrecognised device_type %q", row.DeviceType)
	}
	if len(row.State) == 0 || !json.Valid(row.State) {
		return Device{}, fmt.Errorf("state column of %s is not valid json", row.ID)
	}
	return Device{
		ID:        row.ID,
		Name:      row.Name,
		Type:      t,
		State:     State(append([]byte(nil), row.State...)),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
