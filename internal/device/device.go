package device

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Device is a simulated device record. Only State and UpdatedAt change after
// creation.
type Device struct {
	ID        uuid.UUID
	Name      string
	Type      Type
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State is an arbitrary well-formed JSON document. It is stored as jsonb and
// passed through without per-type shape checks.
type State json.RawMessage

// ParseState validates b as a single JSON document. Empty input and a bare
// null are rejected so a device never ends up without state.
func ParseState(b []byte) (State, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: state is not valid json", ErrInvalidInput)
	}
	return State(append([]byte(nil), trimmed...)), nil
}

func (s State) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *State) UnmarshalJSON(b []byte) error {
	*s = append((*s)[0:0], b...)
	return nil
}

// ParseID accepts the 32-hex form and the hyphenated UUID form, nothing else.
func ParseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	if len(s) != 32 && len(s) != 36 {
		return uuid.Nil, fmt.Errorf("%w: device id %q is not a valid uuid", ErrInvalidInput, s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: device id %q is not a valid uuid", ErrInvalidInput, s)
	}
	return id, nil
}

// FormatID renders id in the 32-hex form used on the wire.
func FormatID(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// NewID returns a fresh random id.
func NewID() uuid.UUID {
	return uuid.New()
}
