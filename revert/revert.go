// Package revert surfaces the data returned by a reverted contract creation.
package revert

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// An Error is returned when a deployment transaction was mined but failed. Data
// carries the raw revert payload, which MAY be empty (e.g. a bare REVERT or an
// out-of-gas failure).
type Error struct {
	TxHash common.Hash
	Data   []byte
	Err    error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	msg := fmt.Sprintf("deployment transaction %v reverted", e.TxHash)
	if r, ok := e.Reason(); ok {
		return fmt.Sprintf("%s: %q", msg, r)
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("%s with data %#x", msg, e.Data)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason returns the string passed to a Solidity `revert("…")` or
// `require(…, "…")`, and true, if Data is an ABI-encoded Error(string).
func (e *Error) Reason() (string, bool) {
	r, err := abi.UnpackRevert(e.Data)
	if err != nil {
		return "", false
	}
	return r, true
}

// Data returns the revert data carried by err, and true, if err is (or wraps)
// an *Error.
func Data(err error) ([]byte, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e.Data, true
}

// A dataError is implemented by JSON-RPC errors that carry additional data,
// which for eth_call is the hex-encoded revert payload.
type dataError interface {
	error
	ErrorData() interface{}
}

// Replay re-executes the failed creation transaction tx as an eth_call from
// `from`, against the state of the block before `block`, and returns an *Error
// carrying whatever revert data the node reports. A nil `block` replays
// against the latest state.
func Replay(ctx context.Context, caller ethereum.ContractCaller, from common.Address, tx *types.Transaction, block *big.Int) error {
	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}

	var at *big.Int
	if block != nil && block.Sign() > 0 {
		at = new(big.Int).Sub(block, big.NewInt(1))
	}

	_, err := caller.CallContract(ctx, msg, at)
	return ErrFrom(tx.Hash(), err)
}

// ErrFrom converts the error returned by an eth_call of the failed transaction
// into an *Error. A nil callErr, meaning the replay succeeded where the mined
// transaction did not, still results in an *Error, but without data.
func ErrFrom(txHash common.Hash, callErr error) *Error {
	e := &Error{
		TxHash: txHash,
		Err:    callErr,
	}

	var de dataError
	if !errors.As(callErr, &de) {
		return e
	}
	switch d := de.ErrorData().(type) {
	case string:
		if b, err := hexutil.Decode(d); err == nil {
			e.Data = b
		}
	case []byte:
		e.Data = d
	}
	return e
}
