package chain

import (
	"fmt"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/usemiddleman/middleman/types"
)

// ValidateAddress checks that addr is bech32 with the given prefix and a
// 20 or 32 byte payload.
func ValidateAddress(addr, prefix string) error {
	hrp, bz, err := bech32.DecodeAndConvert(addr)
	if err != nil {
		return types.NewInvalidValueError("address", addr, fmt.Sprintf("invalid bech32: %v", err))
	}
	if hrp != prefix {
		return types.NewInvalidValueError("address", addr, fmt.Sprintf("expected prefix %q", prefix))
	}
	if err := wasmtypes.VerifyAddressLen()(bz); err != nil {
		return types.NewInvalidValueError("address", addr, fmt.Sprintf("unexpected length %d", len(bz)))
	}
	return nil
}

func (q *Querier) validate(addrs ...string) error {
	for _, a := range addrs {
		if err := ValidateAddress(a, q.AccountAddressPrefix); err != nil {
			return err
		}
	}
	return nil
}
