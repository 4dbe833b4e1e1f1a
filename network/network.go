// Package network connects deployments to a chain: either a JSON-RPC endpoint
// or, when none is configured, an in-process development chain that mines
// every transaction as soon as it is accepted.
package network

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/solidifylabs/deployops"
)

// A Config selects the chain and the deploying account.
type Config struct {
	// RPCURL is the node's JSON-RPC endpoint. If empty, an in-process chain is
	// started.
	RPCURL string
	// ChainID, if non-zero, MUST match the chain ID reported by the node.
	ChainID uint64
	// PrivateKey is the hex-encoded key of the deploying account, with or
	// without 0x prefix. It is REQUIRED for RPC endpoints; the in-process chain
	// generates and funds a key if none is provided.
	PrivateKey string
}

// InProcess reports whether the Config selects the in-process chain.
func (c Config) InProcess() bool {
	return c.RPCURL == ""
}

// Name returns a human-readable identifier of the chain, for logging.
func (c Config) Name() string {
	if c.InProcess() {
		return "in-process"
	}
	return c.RPCURL
}

// A Client is a deployops.Backend that can also report its chain ID.
type Client interface {
	deployops.Backend
	ethereum.ChainIDReader
}

// A Conn is an open connection to a chain, with a signer for the deploying
// account.
type Conn struct {
	Backend deployops.Backend
	Signer  *bind.TransactOpts
	ChainID *big.Int

	close func() error
}

// Close releases the connection; for the in-process chain this discards all
// state.
func (c *Conn) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// ErrNoPrivateKey is returned by Connect() if an RPC endpoint is configured
// without a private key.
var ErrNoPrivateKey = errors.New("private key required for RPC endpoint")

// Connect dials the configured RPC endpoint, or starts an in-process chain, and
// returns a Conn signing with the configured key.
func Connect(ctx context.Context, cfg Config, lgr log.Logger) (*Conn, error) {
	key, err := cfg.key()
	if err != nil {
		return nil, err
	}

	var (
		client  Client
		closeFn func() error
	)
	if cfg.InProcess() {
		chain := NewInProcess(crypto.PubkeyToAddress(key.PublicKey))
		client, closeFn = chain, chain.Close
	} else {
		ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %v", cfg.RPCURL, err)
		}
		client, closeFn = ec, func() error { ec.Close(); return nil }
	}

	conn, err := attach(ctx, client, key, cfg.ChainID)
	if err != nil {
		closeFn() //nolint:errcheck // already returning an error
		return nil, err
	}
	conn.close = closeFn

	lgr.Info("Connected to chain", "network", cfg.Name(), "chainID", conn.ChainID, "deployer", conn.Signer.From)
	return conn, nil
}

// Attach returns a Conn over an existing client, signing with key. Closing the
// Conn does not close the client.
func Attach(ctx context.Context, client Client, key *ecdsa.PrivateKey) (*Conn, error) {
	return attach(ctx, client, key, 0)
}

func attach(ctx context.Context, client Client, key *ecdsa.PrivateKey, wantChainID uint64) (*Conn, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain ID: %w", err)
	}
	if wantChainID != 0 && (!chainID.IsUint64() || chainID.Uint64() != wantChainID) {
		return nil, fmt.Errorf("node reports chain ID %v; configured %d", chainID, wantChainID)
	}

	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("bind.NewKeyedTransactorWithChainID(): %v", err)
	}
	return &Conn{
		Backend: client,
		Signer:  signer,
		ChainID: chainID,
	}, nil
}

// key parses the configured private key, generating one for the in-process
// chain if none is configured.
func (c Config) key() (*ecdsa.PrivateKey, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x")
	if hex == "" {
		if !c.InProcess() {
			return nil, ErrNoPrivateKey
		}
		return crypto.GenerateKey()
	}

	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %v", err)
	}
	return key, nil
}
