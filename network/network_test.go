package network

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// A well-known development key; never use it for anything of value.
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var devAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestConnectInProcess(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      Config
		wantFrom *common.Address
	}{
		{
			name: "generated key",
		},
		{
			name:     "configured key",
			cfg:      Config{PrivateKey: devKey},
			wantFrom: &devAddr,
		},
		{
			name:     "configured key without prefix",
			cfg:      Config{PrivateKey: strings.TrimPrefix(devKey, "0x")},
			wantFrom: &devAddr,
		},
		{
			name: "matching chain ID",
			cfg:  Config{ChainID: params.AllDevChainProtocolChanges.ChainID.Uint64()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Connect(ctx, tt.cfg, log.Root())
			if err != nil {
				t.Fatalf("Connect(%+v) error %v", tt.cfg, err)
			}
			defer conn.Close()

			if tt.wantFrom != nil && conn.Signer.From != *tt.wantFrom {
				t.Errorf("Connect(%+v).Signer.From = %v; want %v", tt.cfg, conn.Signer.From, *tt.wantFrom)
			}

			bal, err := conn.Backend.(*InProcess).BalanceAt(ctx, conn.Signer.From, nil)
			if err != nil {
				t.Fatalf("BalanceAt(signer) error %v", err)
			}
			if want := DevBalance.ToBig(); bal.Cmp(want) != 0 {
				t.Errorf("signer balance %v; want %v", bal, want)
			}
		})
	}
}

func TestConnectErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "RPC without key",
			cfg:     Config{RPCURL: "http://127.0.0.1:1"},
			wantErr: ErrNoPrivateKey,
		},
		{
			name: "invalid key",
			cfg:  Config{PrivateKey: "0xnothex"},
		},
		{
			name: "chain ID mismatch",
			cfg:  Config{ChainID: 1},
		},
		{
			name: "unreachable RPC",
			cfg:  Config{RPCURL: "http://127.0.0.1:1", PrivateKey: devKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Connect(ctx, tt.cfg, log.Root())
			if err == nil {
				conn.Close()
				t.Fatalf("Connect(%+v) got nil error", tt.cfg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect(%+v) error %v; want %v", tt.cfg, err, tt.wantErr)
			}
		})
	}
}

func TestInProcessAutoMines(t *testing.T) {
	ctx := context.Background()

	key, err := crypto.HexToECDSA(strings.TrimPrefix(devKey, "0x"))
	if err != nil {
		t.Fatal(err)
	}
	chain := NewInProcess(devAddr)
	defer chain.Close()

	conn, err := Attach(ctx, chain, key)
	if err != nil {
		t.Fatalf("Attach() error %v", err)
	}
	defer conn.Close()

	head, err := chain.HeaderByNumber(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := conn.Signer.Signer(conn.Signer.From, types.NewTx(&types.DynamicFeeTx{
		ChainID:   conn.ChainID,
		Nonce:     0,
		GasTipCap: big.NewInt(params.GWei),
		GasFeeCap: new(big.Int).Add(head.BaseFee, big.NewInt(2*params.GWei)),
		Gas:       params.TxGas,
		To:        &common.Address{'t', 'o'},
		Value:     big.NewInt(1),
	}))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := chain.SendTransaction(ctx, tx); err != nil {
		t.Fatalf("%T.SendTransaction() error %v", chain, err)
	}

	// No Commit() needed.
	r, err := chain.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		t.Fatalf("%T.TransactionReceipt() immediately after SendTransaction() error %v", chain, err)
	}
	if r.Status != types.ReceiptStatusSuccessful {
		t.Errorf("receipt status %d; want %d", r.Status, types.ReceiptStatusSuccessful)
	}
	if got, want := r.BlockNumber.Uint64(), head.Number.Uint64()+1; got != want {
		t.Errorf("transaction mined in block %d; want %d", got, want)
	}
}
