package config

import (
	"sync"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

var sdkConfigOnce sync.Once

// InitializeSDKConfig registers the chain's bech32 prefixes so sdk.AccAddress
// parsing and printing use "stars" style addresses. Safe to call repeatedly.
func InitializeSDKConfig(accountAddressPrefix string) {
	sdkConfigOnce.Do(func() {
		prefix := accountAddressPrefix
		sdkConfig := sdk.GetConfig()
		sdkConfig.SetBech32PrefixForAccount(prefix, prefix+"pub")
		sdkConfig.SetBech32PrefixForValidator(prefix+"valoper", prefix+"valoperpub")
		sdkConfig.SetBech32PrefixForConsensusNode(prefix+"valcons", prefix+"valconspub")
		sdkConfig.SetAddressVerifier(wasmtypes.VerifyAddressLen())
		sdkConfig.Seal()
	})
}
