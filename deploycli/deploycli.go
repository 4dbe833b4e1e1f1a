// Package deploycli provides the CLI that deploys the CocaColaCodes token.
package deploycli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/solidifylabs/deployops"
	"github.com/solidifylabs/deployops/artifacts"
	"github.com/solidifylabs/deployops/deployopts"
	"github.com/solidifylabs/deployops/network"
)

// The contract and its constructor arguments are fixed.
const (
	contractName = "CocaColaCodes"
	tokenName    = "CocaColaCodes"
	tokenSymbol  = "CCC"
)

// Run parses the command-line arguments, deploys the contract and prints its
// address to stdout. It returns the process exit code: 0 on success and 1 on
// any failure, the error having been written to stderr. It should be called
// from a main.main() function, which exits with the returned code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := &runner{
		stdout:  stdout,
		stderr:  stderr,
		connect: network.Connect,
	}
	return r.run(ctx, args)
}

type runner struct {
	stdout, stderr io.Writer
	connect        func(context.Context, network.Config, log.Logger) (*network.Conn, error)
}

type config struct {
	Artifacts     string
	Network       network.Config
	GasLimit      uint64
	GasFeeCap     string
	GasTipCap     string
	Confirmations uint64
	Timeout       time.Duration
	Verbosity     int
}

func (r *runner) run(ctx context.Context, args []string) int {
	cmd, err := r.command(args)
	if err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return 1
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// command returns the cobra command, its flag defaults read from the
// environment. Malformed environment values are errors rather than falling
// back to defaults, as a zero chain ID disables the chain check.
func (r *runner) command(args []string) (*cobra.Command, error) {
	chainID, err := envUint64("CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}
	cfg := config{
		Artifacts: envOr("ARTIFACTS_DIR", "artifacts"),
		Network: network.Config{
			RPCURL:     envOr("RPC_URL", ""),
			ChainID:    chainID,
			PrivateKey: envOr("PRIVATE_KEY", ""),
		},
		Confirmations: 1,
		Verbosity:     3,
	}

	cmd := &cobra.Command{
		Use:   "deploy-cocacolacodes",
		Short: fmt.Sprintf("Deploy the %s contract as %s(%q, %q)", contractName, contractName, tokenName, tokenSymbol),
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.deploy(cmd.Context(), cfg)
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(r.stdout)
	cmd.SetErr(r.stderr)

	f := cmd.Flags()
	f.StringVar(&cfg.Artifacts, "artifacts", cfg.Artifacts, "Build-artifacts directory (env ARTIFACTS_DIR)")
	f.StringVar(&cfg.Network.RPCURL, "rpc-url", cfg.Network.RPCURL, "JSON-RPC endpoint; in-process chain if empty (env RPC_URL)")
	f.Uint64Var(&cfg.Network.ChainID, "chain-id", cfg.Network.ChainID, "Expected chain ID; unchecked if 0 (env CHAIN_ID)")
	f.StringVar(&cfg.Network.PrivateKey, "private-key", cfg.Network.PrivateKey, "Hex-encoded deployer key (env PRIVATE_KEY)")
	f.Uint64Var(&cfg.GasLimit, "gas-limit", 0, "Deployment gas limit; estimated if 0")
	f.StringVar(&cfg.GasFeeCap, "gas-fee-cap", "", "EIP-1559 max fee per gas, in wei")
	f.StringVar(&cfg.GasTipCap, "gas-tip-cap", "", "EIP-1559 max priority fee per gas, in wei")
	f.Uint64Var(&cfg.Confirmations, "confirmations", cfg.Confirmations, "Blocks, including the deployment's, to await")
	f.DurationVar(&cfg.Timeout, "timeout", 0, "Overall timeout; none if 0")
	f.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "Log level on stderr: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace")

	return cmd, nil
}

// deploy resolves the factory, deploys with the fixed constructor arguments,
// waits for the deployment, and prints the address.
func (r *runner) deploy(ctx context.Context, cfg config) error {
	lgr := log.NewLogger(log.NewTerminalHandlerWithLevel(r.stderr, log.FromLegacyLevel(cfg.Verbosity), false))

	opts, err := cfg.deployOptions(lgr)
	if err != nil {
		return err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	art, err := artifacts.Open(cfg.Artifacts).Lookup(contractName)
	if err != nil {
		return err
	}
	lgr.Debug("Resolved artifact", "contract", art.FullyQualifiedName(), "dir", cfg.Artifacts)

	conn, err := r.connect(ctx, cfg.Network, lgr)
	if err != nil {
		return err
	}
	defer conn.Close()

	resolved := deployopts.CaptureConfig()
	factory, err := deployops.NewContractFactory(art, conn.Backend, conn.Signer, append(opts, resolved)...)
	if err != nil {
		return err
	}
	lgr.Debug("Deployment configured", resolved.Val.LogContext()...)
	c, err := factory.Deploy(ctx, tokenName, tokenSymbol)
	if err != nil {
		return err
	}
	if err := c.WaitForDeployment(ctx); err != nil {
		return err
	}

	return r.report(c.Address())
}

func (r *runner) report(addr common.Address) error {
	_, err := fmt.Fprintf(r.stdout, "cocaColaCodes deployed to %s\n", addr.Hex())
	return err
}

func (cfg config) deployOptions(lgr log.Logger) ([]deployopts.Option, error) {
	opts := []deployopts.Option{
		deployopts.Logger(lgr),
		deployopts.Confirmations(cfg.Confirmations),
	}
	if cfg.GasLimit != 0 {
		opts = append(opts, deployopts.GasLimit(cfg.GasLimit))
	}

	for _, fee := range []struct {
		flag, val string
		opt       func(uint256.Int) deployopts.Option
	}{
		{"gas-fee-cap", cfg.GasFeeCap, deployopts.GasFeeCap},
		{"gas-tip-cap", cfg.GasTipCap, deployopts.GasTipCap},
	} {
		if fee.val == "" {
			continue
		}
		wei, err := uint256.FromDecimal(fee.val)
		if err != nil {
			return nil, fmt.Errorf("--%s %q: %v", fee.flag, fee.val, err)
		}
		opts = append(opts, fee.opt(*wei))
	}
	return opts, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envUint64(key string, fallback uint64) (uint64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s=%q: not a decimal uint64", key, v)
	}
	return n, nil
}
