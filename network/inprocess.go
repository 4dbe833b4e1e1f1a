package network

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// DevBalance is the balance, in wei, of every account funded by NewInProcess().
var DevBalance = new(uint256.Int).Mul(uint256.NewInt(10_000), uint256.NewInt(params.Ether))

// An InProcess chain is an in-memory, single-node chain that mines a block for
// every accepted transaction.
type InProcess struct {
	simulated.Client
	sim *simulated.Backend

	mu sync.Mutex // serialises send+commit
}

var _ Client = (*InProcess)(nil)

// NewInProcess starts a chain with each of the accounts funded with
// DevBalance. It MUST be closed to release resources.
func NewInProcess(funded ...common.Address) *InProcess {
	alloc := make(types.GenesisAlloc, len(funded))
	for _, addr := range funded {
		alloc[addr] = types.Account{Balance: DevBalance.ToBig()}
	}
	sim := simulated.NewBackend(alloc)
	return &InProcess{
		Client: sim.Client(),
		sim:    sim,
	}
}

// SendTransaction submits the transaction and, if accepted, immediately mines
// a block including it.
func (p *InProcess) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	p.sim.Commit()
	return nil
}

// Close shuts down the chain.
func (p *InProcess) Close() error {
	return p.sim.Close()
}
