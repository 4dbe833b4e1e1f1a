// Package evmtest provides init code and build artifacts for deployment tests.
package evmtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/solidifylabs/deployops/artifacts"
)

// TokenABI declares the constructor(string name, string symbol) shared by
// ERC20 and ERC721 tokens.
const TokenABI = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"name_","type":"string","internalType":"string"},{"name":"symbol_","type":"string","internalType":"string"}]}]`

// EchoConstructor returns init code that deploys its entire self as runtime
// code, constructor arguments included, allowing tests to read back exactly
// what was passed to the constructor.
func EchoConstructor() []byte {
	return []byte{
		// CODECOPY(0, 0, CODESIZE)
		byte(vm.CODESIZE), byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.CODECOPY),
		// RETURN(0, CODESIZE)
		byte(vm.CODESIZE), byte(vm.PUSH1), 0, byte(vm.RETURN),
	}
}

// Reverting returns init code that always reverts with empty data.
func Reverting() []byte {
	return []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT)}
}

// ConstructorArgs decodes the token-constructor arguments from the runtime
// code of a contract deployed with EchoConstructor().
func ConstructorArgs(tb testing.TB, runtime []byte) []any {
	tb.Helper()

	prefix := len(EchoConstructor())
	if len(runtime) < prefix {
		tb.Fatalf("runtime code %#x shorter than %T prefix", runtime, EchoConstructor())
	}
	parsed, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		tb.Fatalf("abi.JSON(%T) error %v", TokenABI, err)
	}
	args, err := parsed.Constructor.Inputs.Unpack(runtime[prefix:])
	if err != nil {
		tb.Fatalf("unpack constructor arguments: %v", err)
	}
	return args
}

// Artifact returns a Hardhat artifact for a contract with TokenABI.
func Artifact(name string, code []byte) *artifacts.Artifact {
	return &artifacts.Artifact{
		Format:       "hh-sol-artifact-1",
		ContractName: name,
		SourceName:   "contracts/" + name + ".sol",
		ABI:          json.RawMessage(TokenABI),
		Bytecode:     artifacts.Bytecode{Object: hexutil.Encode(code)},
	}
}

// artifactPath returns the Hardhat path of the contract's artifact.
func artifactPath(name string) string {
	return "contracts/" + name + ".sol/" + name + ".json"
}

// ArtifactsFS returns an artifacts tree holding only the contract.
func ArtifactsFS(tb testing.TB, name string, code []byte) fstest.MapFS {
	tb.Helper()
	buf, err := json.Marshal(Artifact(name, code))
	if err != nil {
		tb.Fatalf("json.Marshal(%T) error %v", artifacts.Artifact{}, err)
	}
	return fstest.MapFS{
		artifactPath(name): {Data: buf},
	}
}

// WriteArtifacts writes ArtifactsFS() under a new temporary directory, which
// it returns.
func WriteArtifacts(tb testing.TB, name string, code []byte) string {
	tb.Helper()
	dir := tb.TempDir()
	for p, f := range ArtifactsFS(tb, name, code) {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			tb.Fatal(err)
		}
		if err := os.WriteFile(full, f.Data, 0o644); err != nil {
			tb.Fatal(err)
		}
	}
	return dir
}
