// Package model provides the compiled risk-model snapshot: immutable value
// types, the compiler that produces them, and the atomic holder that
// publishes them to concurrent readers.
package model

import (
	"math"
	"time"

	"github.com/google/cel-go/cel"
)

// Model is an immutable, versioned bundle of risk-scoring configuration.
// A Model is fully constructed by the compiler and never mutated afterwards;
// scoring reads it concurrently without locking. UpdatedAt, not Version, is
// the sole ordering key between snapshots.
type Model struct {
	Version   string
	UpdatedAt time.Time

	Bins              *BinIndex
	MCCRisk           map[string]string
	CountryRisk       map[string]string
	DisposableDomains map[string]struct{}
	Allow             AllowLists
	Deny              DenyLists
	Weights           map[string]int
	Thresholds        Thresholds
	Velocity          VelocityModel

	// Rules are the model-defined expression rules, compiled at model
	// compile time, in document order.
	Rules []ExpressionRule
}

// AllowLists holds entities exempt from deny-list rules. User and card
// slots are reserved; current rule coverage reads merchants only.
type AllowLists struct {
	Merchants map[string]struct{}
	Users     map[string]struct{}
	Cards     map[string]struct{}
}

// DenyLists holds blocked entities.
type DenyLists struct {
	IPs       map[string]struct{}
	Devices   map[string]struct{}
	Merchants map[string]struct{}
}

// Thresholds are the strict decision boundaries: risk < Accept classifies
// Accept, risk < Review classifies Review, anything else Decline.
type Thresholds struct {
	Accept int `json:"accept"`
	Review int `json:"review"`
}

// ConservativeThresholds classifies every score as Review. Used when a
// model document carries no thresholds at all, and by the empty model.
func ConservativeThresholds() Thresholds {
	return Thresholds{Accept: 0, Review: math.MaxInt}
}

// VelocityModel carries the velocity configuration of the snapshot. The
// scoring engine does not evaluate it yet; the velocity recorder uses the
// windows to maintain observation counters.
type VelocityModel struct {
	// Windows are ISO-8601 durations, e.g. "PT5M".
	Windows []string `json:"windows"`

	// WindowDurations are the parsed Windows, populated by the compiler.
	WindowDurations []time.Duration `json:"-"`

	// Limits maps a window to per-rule transaction limits.
	Limits map[string]map[string]int `json:"limits"`

	// Caps bounds the per-rule velocity contribution.
	Caps map[string]int `json:"caps"`
}

// ExpressionRule is a model-defined rule compiled from a CEL expression.
// The expression must evaluate to a boolean; true triggers the rule.
type ExpressionRule struct {
	Code    string
	Weight  int
	Program cel.Program
}

// DefaultVelocityWindows are used when the document omits velocity windows:
// five minutes, one hour, one day.
var DefaultVelocityWindows = []string{"PT5M", "PT1H", "P1D"}

// Empty returns the pre-bootstrap model: no data, conservative thresholds.
// Its UpdatedAt is the zero time so any compiled snapshot supersedes it.
func Empty() *Model {
	return &Model{
		Version:           "empty",
		Bins:              NewBinIndex(nil),
		MCCRisk:           map[string]string{},
		CountryRisk:       map[string]string{},
		DisposableDomains: map[string]struct{}{},
		Allow: AllowLists{
			Merchants: map[string]struct{}{},
			Users:     map[string]struct{}{},
			Cards:     map[string]struct{}{},
		},
		Deny: DenyLists{
			IPs:       map[string]struct{}{},
			Devices:   map[string]struct{}{},
			Merchants: map[string]struct{}{},
		},
		Weights:    map[string]int{},
		Thresholds: ConservativeThresholds(),
		Velocity:   VelocityModel{Windows: DefaultVelocityWindows},
	}
}

// Weight returns the model weight for a rule code, or the given default
// when the model carries none.
func (m *Model) Weight(code string, def int) int {
	if w, ok := m.Weights[code]; ok {
		return w
	}
	return def
}
