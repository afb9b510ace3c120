// Package simulator runs randomized CRUD scenarios against a store, confirms
// the visibility of its own writes and reports one metrics record per
// scenario. A Coordinator fans the scenarios out over a pool of Workers.
package simulator

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/items"
	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/store"
)

// DefaultMaxJitter spreads read-only scenarios over 0-14 seconds
const DefaultMaxJitter = 15 * time.Second

// OperationChooser picks the top-level action of a CRUD scenario
type OperationChooser func(rng *rand.Rand) models.Operation

// Delete only runs as cleanup of a write or update
var crudOperations = [...]models.Operation{
	models.OperationRead,
	models.OperationWrite,
	models.OperationUpdate,
}

// ChooseCrudOperation draws uniformly from read, write and update
func ChooseCrudOperation(rng *rand.Rand) models.Operation {
	return crudOperations[rng.Intn(len(crudOperations))]
}

// Simulator executes scenarios for one worker. It owns a random source and
// an item factory, so it must not be shared between goroutines.
type Simulator struct {
	store      store.Store
	factory    items.Factory
	catalog    *Catalog
	attributes int
	rng        *rand.Rand
	policy     RetryPolicy
	maxJitter  time.Duration
	choose     OperationChooser
	logger     *zap.Logger
}

// Option configures a Simulator
type Option func(*Simulator)

// WithRetryPolicy sets the polling bounds
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Simulator) {
		s.policy = p.normalized()
	}
}

// WithMaxJitter sets the upper bound of the read-only start delay. Zero
// disables it.
func WithMaxJitter(d time.Duration) Option {
	return func(s *Simulator) {
		s.maxJitter = d
	}
}

// WithOperationChooser replaces the uniform CRUD operation draw
func WithOperationChooser(fn OperationChooser) Option {
	return func(s *Simulator) {
		s.choose = fn
	}
}

// WithRand sets the random source
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		s.rng = rng
	}
}

// WithLogger adds logging
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// New creates a simulator writing items with the given attribute count
func New(st store.Store, factory items.Factory, catalog *Catalog, attributes int, opts ...Option) *Simulator {
	s := &Simulator{
		store:      st,
		factory:    factory,
		catalog:    catalog,
		attributes: attributes,
		rng:        newRand(time.Now().UnixNano()),
		policy:     DefaultRetryPolicy(),
		maxJitter:  DefaultMaxJitter,
		choose:     ChooseCrudOperation,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // workload shaping, not security
}

// jitter returns a whole number of seconds in [0, maxJitter)
func (s *Simulator) jitter() time.Duration {
	secs := int64(s.maxJitter / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(s.rng.Int63n(secs)) * time.Second
}
