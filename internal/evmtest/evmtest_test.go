package evmtest

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/google/go-cmp/cmp"
)

func TestConstructorArgs(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		t.Fatalf("abi.JSON() error %v", err)
	}
	packed, err := parsed.Pack("", "Name", "SYM")
	if err != nil {
		t.Fatalf("%T.Pack() error %v", parsed, err)
	}

	got := ConstructorArgs(t, append(EchoConstructor(), packed...))
	if diff := cmp.Diff([]any{"Name", "SYM"}, got); diff != "" {
		t.Errorf("ConstructorArgs() diff (-want +got):\n%s", diff)
	}
}
