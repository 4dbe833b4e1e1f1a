// Package deployopts provides configuration options for
// deployops.ContractFactory.Deploy() and Contract.WaitForDeployment().
package deployopts

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// A Configuration carries all values that can be modified to configure a
// deployment. It is initially set by deployops.NewContractFactory() and then
// passed to all Options to be modified.
type Configuration struct {
	// bind.TransactOpts overrides; zero values defer to the node's estimates.
	GasLimit  uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
	Value     *big.Int
	Nonce     *big.Int
	// Contract.WaitForDeployment()
	Confirmations uint64 // >= 1; 1 means "included in a block"
	PollInterval  time.Duration
	Logger        log.Logger
}

// Defaults returns the Configuration used before any Options are applied.
func Defaults() *Configuration {
	return &Configuration{
		Confirmations: 1,
		PollInterval:  time.Second,
		Logger:        log.Root(),
	}
}

// Apply returns Defaults() modified by all opts, in order.
func Apply(opts ...Option) (*Configuration, error) {
	cfg := Defaults()
	for _, o := range opts {
		if err := o.Apply(cfg); err != nil {
			return nil, fmt.Errorf("deployopts.Option[%T].Apply(): %v", o, err)
		}
	}
	return cfg, nil
}

// An Option modifies a Configuration.
type Option interface {
	Apply(*Configuration) error
}

// A Func converts a function into an Option, using itself as the Apply method.
type Func func(*Configuration) error

var _ Option = Func(nil)

// Apply returns f(c).
func (f Func) Apply(c *Configuration) error {
	return f(c)
}

// GasLimit sets the gas limit of the deployment transaction, skipping gas
// estimation.
func GasLimit(gas uint64) Option {
	return Func(func(c *Configuration) error {
		if gas == 0 {
			return fmt.Errorf("zero gas limit")
		}
		c.GasLimit = gas
		return nil
	})
}

// GasFeeCap sets the EIP-1559 max fee per gas, in wei.
func GasFeeCap(wei uint256.Int) Option {
	return Func(func(c *Configuration) error {
		c.GasFeeCap = wei.ToBig()
		return nil
	})
}

// GasTipCap sets the EIP-1559 max priority fee per gas, in wei.
func GasTipCap(wei uint256.Int) Option {
	return Func(func(c *Configuration) error {
		c.GasTipCap = wei.ToBig()
		return nil
	})
}

// Value sets the amount of wei sent to a payable constructor.
func Value(wei uint256.Int) Option {
	return Func(func(c *Configuration) error {
		c.Value = wei.ToBig()
		return nil
	})
}

// Nonce overrides the sender's pending nonce.
func Nonce(n uint64) Option {
	return Func(func(c *Configuration) error {
		c.Nonce = new(big.Int).SetUint64(n)
		return nil
	})
}

// Confirmations sets the number of blocks, including the one carrying the
// deployment, that MUST exist before the deployment is considered final.
func Confirmations(n uint64) Option {
	return Func(func(c *Configuration) error {
		if n == 0 {
			return fmt.Errorf("zero confirmations")
		}
		c.Confirmations = n
		return nil
	})
}

// PollInterval sets the period between receipt and block-number queries while
// waiting for a deployment.
func PollInterval(d time.Duration) Option {
	return Func(func(c *Configuration) error {
		if d <= 0 {
			return fmt.Errorf("non-positive poll interval %v", d)
		}
		c.PollInterval = d
		return nil
	})
}

// Logger sets the logger used for deployment progress.
func Logger(l log.Logger) Option {
	return Func(func(c *Configuration) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}
		c.Logger = l
		return nil
	})
}
