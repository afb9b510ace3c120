// Package timing measures the wall-clock cost of single store calls.
package timing

import "time"

// Measure runs fn once and returns how long it took together with its error.
// Failed calls are timed the same way as successful ones.
func Measure(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// MeasureValue is Measure for calls that also produce a value
func MeasureValue[T any](fn func() (T, error)) (time.Duration, T, error) {
	start := time.Now()
	v, err := fn()
	return time.Since(start), v, err
}

// Millis converts d into the fractional milliseconds stored in metrics records
func Millis(d time.Duration) *float64 {
	ms := float64(d.Microseconds()) / 1000
	return &ms
}
