package device

import "fmt"

// Type is the closed set of device categories. The zero value is not a valid
// type.
type Type int

const (
	LightBulb Type = iota + 1
	Switch
	TemperatureSensor
	HumiditySensor
)

// Types lists every recognised device type in declaration order.
var Types = []Type{LightBulb, Switch, TemperatureSensor, HumiditySensor}

// String returns the canonical wire and storage form of t.
func (t Type) String() string {
	switch t {
	case LightBulb:
		return "LightBulb"
	case Switch:
		return "Switch"
	case TemperatureSensor:
		return "TemperatureSensor"
	case HumiditySensor:
		return "HumiditySensor"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Valid reports whether t is one of the recognised types.
func (t Type) Valid() bool {
	switch t {
	case LightBulb, Switch, TemperatureSensor, HumiditySensor:
		return true
	default:
		return false
	}
}

// ParseType maps a canonical string to its Type. Matching is exact and
// case-sensitive; anything else returns ErrInvalidInput.
func ParseType(s string) (Type, error) {
	switch s {
	case "LightBulb":
		return LightBulb, nil
	case "Switch":
		return Switch, nil
	case "TemperatureSensor":
		return TemperatureSensor, nil
	case "HumiditySensor":
		return HumiditySensor, nil
	default:
		return 0, fmt.Errorf("%w: unknown device type %q", ErrInvalidInput, s)
	}
}

// MarshalText renders t in canonical form.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts only canonical forms.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DefaultState is the state document assigned to a newly created device.
func DefaultState(t Type) State {
	switch t {
	case LightBulb:
		return State(`{"on": false}`)
	case Switch:
		return State(`{"on": false}`)
	case TemperatureSensor:
		return State(`{"temperature": 22.0}`)
	case HumiditySensor:
		return State(`{"humidity": 50.0}`)
	default:
		return State(`{}`)
	}
}
