package deployopts

import "math/big"

// A Captured value is an [Option] that records part of the [Configuration] at
// the point in the Option list where it appears. Its Val field is populated
// once the Options are applied, e.g. by deployops.NewContractFactory().
type Captured[T any] struct {
	Val T

	extract func(*Configuration) T
}

var _ Option = (*Captured[struct{}])(nil)

// Apply implements the [Option] interface.
func (c *Captured[T]) Apply(cfg *Configuration) error {
	c.Val = c.extract(cfg)
	return nil
}

// Capture returns a Captured value whose Val is set to extract(<cfg>). Only
// Options preceding it in the list are reflected; capture the resolved
// deployment settings by passing it last, or use [CaptureConfig].
func Capture[T any](extract func(*Configuration) T) *Captured[T] {
	return &Captured[T]{extract: extract}
}

// CaptureConfig captures a pointer to the Configuration, which reflects every
// Option regardless of position.
func CaptureConfig() *Captured[*Configuration] {
	return Capture(func(c *Configuration) *Configuration {
		return c
	})
}

// CaptureConfirmations captures the number of confirmations awaited.
func CaptureConfirmations() *Captured[uint64] {
	return Capture(func(c *Configuration) uint64 {
		return c.Confirmations
	})
}

// LogContext returns key-value pairs describing the deployment settings, for
// passing to a log.Logger. Transaction fields are only included if they
// override the node's estimates.
func (c *Configuration) LogContext() []any {
	ctx := []any{"confirmations", c.Confirmations, "pollInterval", c.PollInterval}
	if c.GasLimit != 0 {
		ctx = append(ctx, "gasLimit", c.GasLimit)
	}
	for _, f := range []struct {
		key string
		val *big.Int
	}{
		{"gasFeeCap", c.GasFeeCap},
		{"gasTipCap", c.GasTipCap},
		{"value", c.Value},
		{"nonce", c.Nonce},
	} {
		if f.val != nil {
			ctx = append(ctx, f.key, f.val)
		}
	}
	return ctx
}
