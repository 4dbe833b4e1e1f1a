package deployops

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/solidifylabs/deployops/internal/sync"
)

// A Contract is a handle on a deployed, or still-deploying, contract.
type Contract struct {
	name    string
	address common.Address
	tx      *types.Transaction

	deployed sync.Latch[*types.Receipt]
}

func newContract(ctx context.Context, f *ContractFactory, addr common.Address, tx *types.Transaction) *Contract {
	c := &Contract{
		name:    f.name,
		address: addr,
		tx:      tx,
	}

	go func() {
		r, err := waitDeployed(ctx, f.backend, f.signer.From, tx, f.cfg)
		if err != nil {
			c.deployed.Reject(fmt.Errorf("%s deployment: %w", c.name, err)) //nolint:errcheck // only ever resolved here
			return
		}
		f.cfg.Logger.Info("Contract deployed", "contract", c.name, "address", r.ContractAddress, "block", r.BlockNumber, "gasUsed", r.GasUsed)
		c.deployed.Resolve(r) //nolint:errcheck // only ever resolved here
	}()

	return c
}

// Address returns the address at which the contract is, or will be, deployed.
// It is known as soon as Deploy() returns, but code only exists there once
// WaitForDeployment() returns nil.
func (c *Contract) Address() common.Address {
	return c.address
}

// DeploymentTransaction returns the contract-creation transaction.
func (c *Contract) DeploymentTransaction() *types.Transaction {
	return c.tx
}

// WaitForDeployment blocks until the deployment transaction has been included
// with a successful status, has the configured number of confirmations, and
// the contract's code exists on chain. A reverted deployment results in an
// error wrapping a *revert.Error.
//
// WaitForDeployment can be called any number of times, concurrently; each call
// honours its own ctx, but cancellation only abandons the wait, not the
// tracking of the deployment, which is bound to the Context passed to Deploy().
func (c *Contract) WaitForDeployment(ctx context.Context) error {
	_, err := c.deployed.Wait(ctx)
	return err
}

// Receipt returns the deployment receipt if WaitForDeployment() would return
// nil without blocking, otherwise it returns nil.
func (c *Contract) Receipt() *types.Receipt {
	if !c.deployed.Resolved() {
		return nil
	}
	// Returns immediately as the Latch is resolved.
	r, err := c.deployed.Wait(context.Background())
	if err != nil {
		return nil
	}
	return r
}
