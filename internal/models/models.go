// internal/models/models.go
package models

import (
	"fmt"
	"strconv"
	"time"
)

// Operation identifies which store action a timing sample belongs to
type Operation int

const (
	OperationRead Operation = iota
	OperationWrite
	OperationUpdate
	OperationDelete
)

var operationNames = [...]string{"read", "write", "update", "delete"}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return fmt.Sprintf("operation(%d)", int(o))
	}
	return operationNames[o]
}

// Valid reports whether o is one of the declared operations
func (o Operation) Valid() bool {
	return o >= OperationRead && o <= OperationDelete
}

// MarshalText encodes the operation by name
func (o Operation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("models: invalid operation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText decodes an operation name
func (o *Operation) UnmarshalText(text []byte) error {
	for i, name := range operationNames {
		if name == string(text) {
			*o = Operation(i)
			return nil
		}
	}
	return fmt.Errorf("models: unknown operation %q", string(text))
}

// Scenario identifies the top-level workload a metrics record belongs to
type Scenario int

const (
	ScenarioCrud Scenario = iota
	ScenarioReadOnly
)

func (s Scenario) String() string {
	switch s {
	case ScenarioCrud:
		return "crud"
	case ScenarioReadOnly:
		return "readOnly"
	default:
		return fmt.Sprintf("scenario(%d)", int(s))
	}
}

// MarshalText encodes the scenario by name
func (s Scenario) MarshalText() ([]byte, error) {
	if s != ScenarioCrud && s != ScenarioReadOnly {
		return nil, fmt.Errorf("models: invalid scenario %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a scenario name
func (s *Scenario) UnmarshalText(text []byte) error {
	switch string(text) {
	case "crud":
		*s = ScenarioCrud
	case "readOnly":
		*s = ScenarioReadOnly
	default:
		return fmt.Errorf("models: unknown scenario %q", string(text))
	}
	return nil
}

// AttributeKind is the value type of a synthetic attribute
type AttributeKind int

const (
	AttributeText AttributeKind = iota
	AttributeNumber
)

// Attribute is one typed value of a BenchmarkItem. Number values are
// decimal strings; the store may return them in a different but equal
// form ("12.5" for "12.50"), so compare them with Equal.
type Attribute struct {
	Kind  AttributeKind
	Value string
}

// Text creates a text attribute
func Text(v string) Attribute {
	return Attribute{Kind: AttributeText, Value: v}
}

// Number creates a numeric attribute with two decimals
func Number(v float64) Attribute {
	return Attribute{Kind: AttributeNumber, Value: strconv.FormatFloat(v, 'f', 2, 64)}
}

// Float parses a numeric attribute
func (a Attribute) Float() (float64, error) {
	if a.Kind != AttributeNumber {
		return 0, fmt.Errorf("models: attribute is not numeric")
	}
	return strconv.ParseFloat(a.Value, 64)
}

// Equal reports whether a and b hold the same value. Numbers compare by
// value, everything else by its exact text.
func (a Attribute) Equal(b Attribute) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == AttributeNumber {
		x, errX := a.Float()
		y, errY := b.Float()
		if errX == nil && errY == nil {
			return x == y
		}
	}
	return a.Value == b.Value
}

// BenchmarkItem is a synthetic record. Attributes are addressed by position;
// the store names position i as strconv.Itoa(i).
type BenchmarkItem struct {
	ID         string
	Attributes []Attribute
}

// Attribute returns the attribute at position i
func (b BenchmarkItem) Attribute(i int) (Attribute, bool) {
	if i < 0 || i >= len(b.Attributes) {
		return Attribute{}, false
	}
	return b.Attributes[i], true
}

// AttributeName is the store-side name of position i
func AttributeName(i int) string {
	return strconv.Itoa(i)
}

// AttributePosition parses a store-side attribute name back into a position
func AttributePosition(name string) (int, bool) {
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// SimulationMetrics is produced once per scenario invocation. Durations are
// milliseconds; nil means the phase did not run or was not confirmed.
type SimulationMetrics struct {
	Operation                  Operation `json:"operation"`
	Timestamp                  time.Time `json:"timestamp"`
	Successful                 bool      `json:"successful"`
	Scenario                   Scenario  `json:"scenario"`
	SimulationTime             *float64  `json:"simulationTime,omitempty"`
	ReadTime                   *float64  `json:"readTime,omitempty"`
	WriteTime                  *float64  `json:"writeTime,omitempty"`
	WriteItemConfirmationTime  *float64  `json:"writeItemConfirmationTime,omitempty"`
	UpdateTime                 *float64  `json:"updateTime,omitempty"`
	UpdateItemConfirmationTime *float64  `json:"updateItemConfirmationTime,omitempty"`
	DeleteTime                 *float64  `json:"deleteTime,omitempty"`
	DeleteItemConfirmationTime *float64  `json:"deleteItemConfirmationTime,omitempty"`
}

// NewSimulationMetrics creates an empty record stamped with the current time
func NewSimulationMetrics(scenario Scenario) *SimulationMetrics {
	return &SimulationMetrics{
		Timestamp: time.Now().UTC(),
		Scenario:  scenario,
	}
}

// Phase names a duration field of SimulationMetrics
type Phase string

const (
	PhaseSimulation         Phase = "simulation"
	PhaseRead               Phase = "read"
	PhaseWrite              Phase = "write"
	PhaseWriteConfirmation  Phase = "write_confirmation"
	PhaseUpdate             Phase = "update"
	PhaseUpdateConfirmation Phase = "update_confirmation"
	PhaseDelete             Phase = "delete"
	PhaseDeleteConfirmation Phase = "delete_confirmation"
)

// Phases returns every populated duration keyed by phase, in a stable order
func (m *SimulationMetrics) Phases() []PhaseDuration {
	all := []struct {
		phase Phase
		value *float64
	}{
		{PhaseSimulation, m.SimulationTime},
		{PhaseRead, m.ReadTime},
		{PhaseWrite, m.WriteTime},
		{PhaseWriteConfirmation, m.WriteItemConfirmationTime},
		{PhaseUpdate, m.UpdateTime},
		{PhaseUpdateConfirmation, m.UpdateItemConfirmationTime},
		{PhaseDelete, m.DeleteTime},
		{PhaseDeleteConfirmation, m.DeleteItemConfirmationTime},
	}

	out := make([]PhaseDuration, 0, len(all))
	for _, p := range all {
		if p.value != nil {
			out = append(out, PhaseDuration{Phase: p.phase, Millis: *p.value})
		}
	}
	return out
}

// PhaseDuration is one populated duration of a record
type PhaseDuration struct {
	Phase  Phase
	Millis float64
}
