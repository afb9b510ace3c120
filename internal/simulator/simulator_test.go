package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/store"
)

// sequenceFactory numbers its items so consecutive items always differ
type sequenceFactory struct {
	mu sync.Mutex
	n  int
}

func (f *sequenceFactory) NewItem(attributes int) models.BenchmarkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++

	item := models.BenchmarkItem{ID: fmt.Sprintf("item-%d", f.n)}
	for i := 0; i < attributes; i++ {
		if i%2 == 1 {
			item.Attributes = append(item.Attributes, models.Number(float64(f.n)))
		} else {
			item.Attributes = append(item.Attributes, models.Text(fmt.Sprintf("text-%d", f.n)))
		}
	}
	return item
}

type panicFactory struct{}

func (panicFactory) NewItem(int) models.BenchmarkItem {
	panic("generator exploded")
}

func always(op models.Operation) OperationChooser {
	return func(*rand.Rand) models.Operation { return op }
}

func seededStore(t *testing.T, opts []store.MemoryOption, keys ...string) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore(opts...)
	for _, k := range keys {
		require.NoError(t, st.Put(context.Background(), models.BenchmarkItem{
			ID:         k,
			Attributes: []models.Attribute{models.Text("seed"), models.Number(1)},
		}))
	}
	return st
}

func testCatalog(t *testing.T, keys ...string) *Catalog {
	t.Helper()
	c, err := NewCatalog(keys)
	require.NoError(t, err)
	return c
}

func newTestSimulator(st store.Store, catalog *Catalog, attributes int, opts ...Option) *Simulator {
	base := []Option{
		WithMaxJitter(0),
		WithRand(newRand(1)),
	}
	return New(st, &sequenceFactory{}, catalog, attributes, append(base, opts...)...)
}

func TestRun_ReadOnly(t *testing.T) {
	st := seededStore(t, nil, "k1", "k2", "k3")
	sim := newTestSimulator(st, testCatalog(t, "k1", "k2", "k3"), 5)

	metrics, err := sim.Run(context.Background(), models.ScenarioReadOnly)
	require.NoError(t, err)

	assert.Equal(t, models.ScenarioReadOnly, metrics.Scenario)
	assert.Equal(t, models.OperationRead, metrics.Operation)
	assert.True(t, metrics.Successful)
	assert.NotNil(t, metrics.SimulationTime)
	assert.NotNil(t, metrics.ReadTime)
	assert.Nil(t, metrics.WriteTime)
	assert.Nil(t, metrics.UpdateTime)
	assert.Nil(t, metrics.DeleteTime)
	assert.False(t, metrics.Timestamp.IsZero())
}

func TestRun_ReadMissingKeyIsNotAFailure(t *testing.T) {
	st := seededStore(t, nil, "k1")
	sim := newTestSimulator(st, testCatalog(t, "gone"), 5,
		WithOperationChooser(always(models.OperationRead)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.NoError(t, err)
	assert.True(t, metrics.Successful)
	assert.Equal(t, models.OperationRead, metrics.Operation)
	assert.NotNil(t, metrics.ReadTime)
}

func TestRun_CrudWrite(t *testing.T) {
	st := seededStore(t, nil, "k1", "k2", "k3")
	sim := newTestSimulator(st, testCatalog(t, "k1", "k2", "k3"), 1,
		WithOperationChooser(always(models.OperationWrite)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.NoError(t, err)

	assert.Equal(t, models.OperationWrite, metrics.Operation)
	assert.True(t, metrics.Successful)
	assert.NotNil(t, metrics.WriteTime)
	assert.NotNil(t, metrics.WriteItemConfirmationTime)
	assert.NotNil(t, metrics.DeleteTime)
	assert.NotNil(t, metrics.DeleteItemConfirmationTime)
	assert.Nil(t, metrics.UpdateTime)
	assert.Nil(t, metrics.UpdateItemConfirmationTime)
	assert.Nil(t, metrics.ReadTime)

	// the written item was cleaned up
	assert.Equal(t, 3, st.Len())
}

func TestRun_CrudUpdate(t *testing.T) {
	st := seededStore(t, nil, "k1")
	sim := newTestSimulator(st, testCatalog(t, "k1"), 5,
		WithOperationChooser(always(models.OperationUpdate)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.NoError(t, err)

	assert.Equal(t, models.OperationUpdate, metrics.Operation)
	assert.True(t, metrics.Successful)
	assert.NotNil(t, metrics.WriteTime)
	assert.NotNil(t, metrics.WriteItemConfirmationTime)
	assert.NotNil(t, metrics.UpdateTime)
	assert.NotNil(t, metrics.UpdateItemConfirmationTime)
	assert.NotNil(t, metrics.DeleteTime)
	assert.NotNil(t, metrics.DeleteItemConfirmationTime)
	assert.Equal(t, 1, st.Len())
}

func TestRun_ConfirmationExhaustion(t *testing.T) {
	st := store.NewMemoryStore(store.WithLag(time.Hour))
	sim := newTestSimulator(st, testCatalog(t, "k1"), 3,
		WithOperationChooser(always(models.OperationWrite)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.NoError(t, err)

	assert.True(t, metrics.Successful)
	assert.NotNil(t, metrics.WriteTime)
	assert.Nil(t, metrics.WriteItemConfirmationTime)
	assert.NotNil(t, metrics.DeleteTime)
	// the item never became visible, so its absence confirms at once
	assert.NotNil(t, metrics.DeleteItemConfirmationTime)
}

func TestRun_UpdateConfirmationExhaustion(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	st := store.NewMemoryStore(store.WithLag(time.Minute), store.WithClock(clock.Now))
	sim := newTestSimulator(st, testCatalog(t, "k1"), 3)

	metrics := models.NewSimulationMetrics(models.ScenarioCrud)
	item, err := sim.PutItem(context.Background(), metrics)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = sim.UpdateItem(context.Background(), item.ID, metrics)
	require.NoError(t, err)

	require.NoError(t, sim.ConfirmUpdated(context.Background(), item, watchedAttribute(item), metrics))
	assert.Nil(t, metrics.UpdateItemConfirmationTime)

	clock.Advance(time.Minute)
	require.NoError(t, sim.ConfirmUpdated(context.Background(), item, watchedAttribute(item), metrics))
	assert.NotNil(t, metrics.UpdateItemConfirmationTime)
}

// canonicalStore returns numbers without trailing zeros, as DynamoDB does
type canonicalStore struct {
	store.Store
}

func (c canonicalStore) Get(ctx context.Context, key string) (models.BenchmarkItem, bool, error) {
	item, found, err := c.Store.Get(ctx, key)
	for i, a := range item.Attributes {
		if f, perr := a.Float(); perr == nil {
			item.Attributes[i].Value = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return item, found, err
}

func TestConfirmUpdated_StaleReadInCanonicalForm(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(0, 0)}
	mem := store.NewMemoryStore(store.WithLag(time.Minute), store.WithClock(clock.Now))
	sim := newTestSimulator(canonicalStore{mem}, testCatalog(t, "k1"), 2)

	original := models.BenchmarkItem{ID: "item-1", Attributes: []models.Attribute{models.Text("a"), models.Number(12.5)}}
	require.Equal(t, "12.50", original.Attributes[1].Value)
	require.NoError(t, mem.Put(ctx, original))
	clock.Advance(time.Minute)

	updated := models.BenchmarkItem{ID: "item-1", Attributes: []models.Attribute{models.Text("b"), models.Number(13)}}
	require.NoError(t, mem.Put(ctx, updated))

	metrics := models.NewSimulationMetrics(models.ScenarioCrud)
	require.NoError(t, sim.ConfirmUpdated(ctx, original, 1, metrics))
	assert.Nil(t, metrics.UpdateItemConfirmationTime, "stale read must not confirm the update")

	clock.Advance(time.Minute)
	require.NoError(t, sim.ConfirmUpdated(ctx, original, 1, metrics))
	assert.NotNil(t, metrics.UpdateItemConfirmationTime)
}

func TestRun_StoreErrorFailsScenario(t *testing.T) {
	boom := errors.New("throughput exceeded")
	st := seededStore(t, nil, "k1")
	st.SetFault(func(op, _ string) error {
		if op == store.OpPut {
			return boom
		}
		return nil
	})
	sim := newTestSimulator(st, testCatalog(t, "k1"), 5,
		WithOperationChooser(always(models.OperationUpdate)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.Error(t, err)

	var se *store.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, store.OpPut, se.Op)
	assert.ErrorIs(t, err, boom)

	assert.False(t, metrics.Successful)
	assert.NotNil(t, metrics.SimulationTime)
	assert.NotNil(t, metrics.WriteTime)
	assert.Nil(t, metrics.WriteItemConfirmationTime)
}

func TestRun_ReadErrorWhilePollingAborts(t *testing.T) {
	st := seededStore(t, nil, "k1")
	st.SetFault(func(op, _ string) error {
		if op == store.OpGet {
			return errors.New("connection reset")
		}
		return nil
	})
	sim := newTestSimulator(st, testCatalog(t, "k1"), 2,
		WithOperationChooser(always(models.OperationWrite)))

	metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
	require.Error(t, err)
	assert.False(t, metrics.Successful)
	assert.NotNil(t, metrics.WriteTime)
	assert.Nil(t, metrics.DeleteTime)
}

func TestRun_CancelledContext(t *testing.T) {
	st := seededStore(t, nil, "k1")
	sim := newTestSimulator(st, testCatalog(t, "k1"), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	metrics, err := sim.Run(ctx, models.ScenarioReadOnly)
	require.Error(t, err)
	assert.False(t, metrics.Successful)
	assert.NotNil(t, metrics.SimulationTime)
}

func TestRun_JitterInterruptedByContext(t *testing.T) {
	st := seededStore(t, nil, "k1")
	sim := newTestSimulator(st, testCatalog(t, "k1"), 2, WithMaxJitter(time.Hour), WithRand(newRand(3)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	metrics, err := sim.Run(ctx, models.ScenarioReadOnly)
	assert.Less(t, time.Since(start), time.Minute)
	if err != nil {
		assert.False(t, metrics.Successful)
	}
}

func TestJitter(t *testing.T) {
	sim := newTestSimulator(store.NewMemoryStore(), testCatalog(t, "k1"), 1, WithMaxJitter(DefaultMaxJitter))
	for i := 0; i < 200; i++ {
		d := sim.jitter()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, DefaultMaxJitter)
		assert.Zero(t, d%time.Second)
	}

	none := newTestSimulator(store.NewMemoryStore(), testCatalog(t, "k1"), 1)
	assert.Zero(t, none.jitter())
}

func TestWatchedAttribute(t *testing.T) {
	assert.Equal(t, 1, watchedAttribute(models.BenchmarkItem{
		Attributes: []models.Attribute{models.Text("a"), models.Number(2), models.Number(3)},
	}))
	assert.Equal(t, 0, watchedAttribute(models.BenchmarkItem{
		Attributes: []models.Attribute{models.Text("a")},
	}))
}

func TestChooseCrudOperation_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("never chooses delete", prop.ForAll(
		func(seed int64) bool {
			op := ChooseCrudOperation(newRand(seed))
			return op == models.OperationRead || op == models.OperationWrite || op == models.OperationUpdate
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestChooseCrudOperation_CoversAllOperations(t *testing.T) {
	rng := newRand(7)
	seen := map[models.Operation]int{}
	for i := 0; i < 3000; i++ {
		seen[ChooseCrudOperation(rng)]++
	}
	require.Len(t, seen, 3)
	for op, n := range seen {
		assert.InDelta(t, 1000, n, 150, "operation %s", op)
	}
}

func TestRun_SuccessMatchesStoreErrors(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("successful iff no store request failed", prop.ForAll(
		func(failing bool, op int) bool {
			st := store.NewMemoryStore()
			_ = st.Put(context.Background(), models.BenchmarkItem{ID: "k1"})
			if failing {
				st.SetFault(func(string, string) error { return errors.New("unavailable") })
			}
			sim := New(st, &sequenceFactory{}, &Catalog{keys: []string{"k1"}}, 3,
				WithMaxJitter(0),
				WithOperationChooser(always(crudOperations[op])))

			metrics, err := sim.Run(context.Background(), models.ScenarioCrud)
			return metrics.Successful == (err == nil) &&
				metrics.Successful == !failing &&
				metrics.SimulationTime != nil
		},
		gen.Bool(),
		gen.IntRange(0, len(crudOperations)-1),
	))

	properties.TestingRun(t)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
