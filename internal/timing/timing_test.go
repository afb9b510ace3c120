package timing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure(t *testing.T) {
	t.Run("times a successful call", func(t *testing.T) {
		elapsed, err := Measure(func() error {
			time.Sleep(10 * time.Millisecond)
			return nil
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	})

	t.Run("times a failed call and returns its error unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		elapsed, err := Measure(func() error {
			time.Sleep(5 * time.Millisecond)
			return boom
		})
		assert.Same(t, boom, err)
		assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	})
}

func TestMeasureValue(t *testing.T) {
	elapsed, v, err := MeasureValue(func() (string, error) {
		return "item", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "item", v)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))

	boom := errors.New("boom")
	_, v2, err := MeasureValue(func() (int, error) { return 7, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 7, v2)
}

func TestMillis(t *testing.T) {
	ms := Millis(1500 * time.Microsecond)
	require.NotNil(t, ms)
	assert.Equal(t, 1.5, *ms)

	assert.Equal(t, 0.0, *Millis(0))
}
