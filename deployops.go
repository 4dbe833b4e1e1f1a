// Package deployops deploys compiled contracts. A ContractFactory couples a
// build artifact with a backend and signer; Deploy() submits the creation
// transaction and returns a Contract whose WaitForDeployment() blocks until the
// deployment is final.
//
// Typical usage mirrors a deployment script:
//
//	f, err := deployops.GetContractFactory(artifacts.Open("artifacts"), "Token", backend, signer)
//	…
//	c, err := f.Deploy(ctx, "Name", "SYM")
//	…
//	if err := c.WaitForDeployment(ctx); err != nil { … }
//	fmt.Println(c.Address())
package deployops

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/solidifylabs/deployops/artifacts"
	"github.com/solidifylabs/deployops/deployopts"
)

// A Backend is the subset of a node's JSON-RPC API needed to deploy and await
// contracts. Both *ethclient.Client and simulated.Client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// A ContractFactory deploys new instances of a single contract.
type ContractFactory struct {
	name     string
	abi      abi.ABI
	bytecode []byte

	backend Backend
	signer  *bind.TransactOpts
	cfg     *deployopts.Configuration
}

// GetContractFactory looks up the named artifact in dir and returns
// NewContractFactory(<artifact>, …). Unknown names result in an error wrapping
// artifacts.ErrNotFound.
func GetContractFactory(dir *artifacts.Dir, name string, backend Backend, signer *bind.TransactOpts, opts ...deployopts.Option) (*ContractFactory, error) {
	a, err := dir.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewContractFactory(a, backend, signer, opts...)
}

// NewContractFactory returns a factory for the artifact's contract, deploying
// via the backend with transactions signed by the signer. The signer is copied
// for every deployment and never modified.
func NewContractFactory(a *artifacts.Artifact, backend Backend, signer *bind.TransactOpts, opts ...deployopts.Option) (*ContractFactory, error) {
	if backend == nil || signer == nil {
		return nil, fmt.Errorf("%T for %q requires non-nil backend and signer", &ContractFactory{}, a.ContractName)
	}

	code, err := a.Code()
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse %s ABI: %v", a.ContractName, err)
	}
	cfg, err := deployopts.Apply(opts...)
	if err != nil {
		return nil, err
	}

	return &ContractFactory{
		name:     a.ContractName,
		abi:      parsed,
		bytecode: code,
		backend:  backend,
		signer:   signer,
		cfg:      cfg,
	}, nil
}

// Name returns the contract's name.
func (f *ContractFactory) Name() string {
	return f.name
}

// ABI returns the contract's parsed ABI.
func (f *ContractFactory) ABI() abi.ABI {
	return f.abi
}

// DeployData returns the creation bytecode followed by the ABI-encoded
// constructor arguments, i.e. the data of the transaction sent by Deploy().
func (f *ContractFactory) DeployData(args ...any) ([]byte, error) {
	packed, err := f.abi.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor arguments: %v", f.name, err)
	}
	return append(bytes.Clone(f.bytecode), packed...), nil
}

// Deploy signs and sends a contract-creation transaction with the positional
// constructor arguments, returning once the backend has accepted it. Failures
// before submission (argument encoding, gas estimation, signing, or rejection
// by the node) are returned directly.
//
// The returned Contract tracks the deployment in a goroutine that lives until
// the deployment is final, fails, or ctx is cancelled; see
// Contract.WaitForDeployment().
func (f *ContractFactory) Deploy(ctx context.Context, args ...any) (*Contract, error) {
	opts := f.transactOpts(ctx)

	addr, tx, _, err := bind.DeployContract(opts, f.abi, f.bytecode, f.backend, args...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", f.name, err)
	}
	f.cfg.Logger.Info("Submitted contract deployment", "contract", f.name, "tx", tx.Hash(), "address", addr, "nonce", tx.Nonce(), "gas", tx.Gas())

	return newContract(ctx, f, addr, tx), nil
}

// transactOpts returns a copy of the signer, overridden by the factory's
// Configuration.
func (f *ContractFactory) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *f.signer
	opts.Context = ctx

	cfg := f.cfg
	if cfg.GasLimit != 0 {
		opts.GasLimit = cfg.GasLimit
	}
	if cfg.GasFeeCap != nil {
		opts.GasFeeCap = cfg.GasFeeCap
	}
	if cfg.GasTipCap != nil {
		opts.GasTipCap = cfg.GasTipCap
	}
	if cfg.Value != nil {
		opts.Value = cfg.Value
	}
	if cfg.Nonce != nil {
		opts.Nonce = cfg.Nonce
	}
	return &opts
}
