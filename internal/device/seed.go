package device

import (
	"context"
	"fmt"
)

// Seed is one entry of the starter fleet.
type Seed struct {
	Name  string
	Type  Type
	State State
}

// DefaultFleet is inserted, in order, into an empty store. Its states differ
// from DefaultState on purpose.
var DefaultFleet = []Seed{
	{Name: "Living Room Light", Type: LightBulb, State: State(`{"on": false}`)},
	{Name: "Kitchen Switch", Type: Switch, State: State(`{"on": true}`)},
	{Name: "Bedroom Temperature", Type: TemperatureSensor, State: State(`{"temperature": 22.5}`)},
	{Name: "Office Humidity", Type: HumiditySensor, State: State(`{"humidity": 45.2}`)},
}

// seedLockKey serialises concurrent replicas seeding the same database.
const seedLockKey int64 = 0x64657669636573

// EnsureDefaults inserts DefaultFleet when, and only when, the store holds no
// devices. Count and inserts share one transaction, so any failure leaves the
// table as it was. It returns the number of devices inserted.
func (s *Store) EnsureDefaults(ctx context.Context) (int, error) {
	inserted := 0
	err := s.tx.InTx(ctx, func(q Querier) error {
		if err := q.LockDeviceSeed(ctx, seedLockKey); err != nil {
			return s.storageErr("lock device seed", err)
		}

		count, err := q.CountDevices(ctx)
		if err != nil {
			return s.storageErr("count devices", err)
		}
		if count != 0 {
			s.log.Debug().Int64("count", count).Msg("devices present, skipping default fleet")
			return nil
		}

		s.log.Info().Int("devices", len(DefaultFleet)).Msg("no devices found, seeding default fleet")
		for _, seed := range DefaultFleet {
			d, err := s.insert(ctx, q, seed.Name, seed.Type, seed.State)
			if err != nil {
				return fmt.Errorf("seed %q: %w", seed.Name, err)
			}
			s.log.Debug().
				Str("id", d.ID.String()).
				Str("name", d.Name).
				Str("device_type", d.Type.String()).
				Msg("seeded default device")
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.AddDevicesSeeded(inserted)
	return inserted, nil
}
