package sqlcgen

import (
	"time"

	"github.com/google/uuid"
)

// Device is a row of the devices table. DeviceType is read back as text and
// State holds the raw jsonb document.
type Device struct {
	ID         uuid.UUID
	Name       string
	DeviceType string
	State      []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
