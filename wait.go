package deployops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/solidifylabs/deployops/deployopts"
	"github.com/solidifylabs/deployops/revert"
)

// waitDeployed blocks until tx is mined, confirmed and has left code at the
// contract address, returning its receipt.
func waitDeployed(ctx context.Context, b Backend, from common.Address, tx *types.Transaction, cfg *deployopts.Configuration) (*types.Receipt, error) {
	lgr := cfg.Logger.New("tx", tx.Hash())

	receipt, err := waitMined(ctx, b, tx.Hash(), cfg.PollInterval, lgr)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		lgr.Debug("Deployment failed", "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
		return nil, revert.Replay(ctx, b, from, tx, receipt.BlockNumber)
	}
	lgr.Debug("Deployment included", "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)

	if err := waitConfirmations(ctx, b, receipt.BlockNumber.Uint64(), cfg.Confirmations, cfg.PollInterval, lgr); err != nil {
		return nil, err
	}

	code, err := b.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("code at %v: %w", receipt.ContractAddress, err)
	}
	if len(code) == 0 {
		return nil, bind.ErrNoCodeAfterDeploy
	}
	return receipt, nil
}

// waitMined polls for the receipt of the transaction. Errors other than
// ethereum.NotFound are logged and treated as transient.
func waitMined(ctx context.Context, b bind.DeployBackend, hash common.Hash, interval time.Duration, lgr log.Logger) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := poll(ctx, interval, func() (bool, error) {
		r, err := b.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			receipt = r
			return true, nil
		case errors.Is(err, ethereum.NotFound):
			lgr.Trace("Deployment not yet mined")
		default:
			lgr.Trace("Receipt retrieval failed", "err", err)
		}
		return false, nil
	})
	return receipt, err
}

// waitConfirmations polls until the chain head is at least confirmations-1
// blocks past the one that included the deployment.
func waitConfirmations(ctx context.Context, b bind.ContractTransactor, included, confirmations uint64, interval time.Duration, lgr log.Logger) error {
	if confirmations <= 1 {
		return nil
	}
	target := included + confirmations - 1

	return poll(ctx, interval, func() (bool, error) {
		head, err := b.HeaderByNumber(ctx, nil)
		if err != nil {
			lgr.Trace("Header retrieval failed", "err", err)
			return false, nil
		}
		n := head.Number.Uint64()
		lgr.Trace("Awaiting confirmations", "head", n, "target", target)
		return n >= target, nil
	})
}

// poll calls fn immediately and then every interval until it returns true or
// an error, or until ctx is done.
func poll(ctx context.Context, interval time.Duration, fn func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn()
		if err != nil || done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
