// Package items produces the synthetic records written during simulations.
package items

import (
	"math/rand"

	"github.com/google/uuid"
	"gopkg.in/loremipsum.v1"

	"github.com/FairForge/kvbench/internal/models"
)

// MaxNumber is the upper bound of generated numeric attributes
const MaxNumber = 32.0

// Factory creates fresh benchmark items
type Factory interface {
	NewItem(attributes int) models.BenchmarkItem
}

// Generator is a Factory backed by its own random source. It is not safe for
// concurrent use; every worker owns one.
type Generator struct {
	rng   *rand.Rand
	lorem *loremipsum.LoremIpsum
}

// NewGenerator creates a generator seeded with seed
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // synthetic payloads
		lorem: loremipsum.NewWithSeed(seed),
	}
}

// NewItem returns an item with a new UUID and attributes alternating between
// lorem ipsum text (even positions) and numbers in [0, 32] (odd positions).
func (g *Generator) NewItem(attributes int) models.BenchmarkItem {
	if attributes < 0 {
		attributes = 0
	}

	item := models.BenchmarkItem{
		ID:         uuid.NewString(),
		Attributes: make([]models.Attribute, attributes),
	}
	for i := 0; i < attributes; i++ {
		if i%2 == 1 {
			item.Attributes[i] = models.Number(g.rng.Float64() * MaxNumber)
		} else {
			item.Attributes[i] = models.Text(g.lorem.Sentence())
		}
	}
	return item
}
