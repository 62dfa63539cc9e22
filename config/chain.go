package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/usemiddleman/middleman/types"
)

type ChainConfig struct {
	ChainId              string
	RestUrls             []string
	EscrowContract       string
	AccountAddressPrefix string
	IPFSGateway          string
	QueryTimeout         time.Duration
	Environment          string
}

func (cc ChainConfig) Validate() error {
	// Chain ID validation
	if len(cc.ChainId) == 0 {
		return types.NewValidationError("CHAIN_ID", "required field is missing")
	}

	// REST URL validation
	if len(cc.RestUrls) == 0 {
		return types.NewValidationError("REST_URLS", "required field is missing")
	}
	for _, restUrl := range cc.RestUrls {
		if u, err := url.Parse(restUrl); err != nil {
			return types.NewInvalidValueError("REST_URLS", restUrl, fmt.Sprintf("invalid URL: %v", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return types.NewInvalidValueError("REST_URLS", restUrl, fmt.Sprintf("must use http or https scheme, got: %s", u.Scheme))
		}
	}

	// IPFS gateway validation
	if u, err := url.Parse(cc.IPFSGateway); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return types.NewInvalidValueError("IPFS_GATEWAY", cc.IPFSGateway, "must be an http or https URL")
	} else if !strings.HasSuffix(u.Path, "/") {
		return types.NewInvalidValueError("IPFS_GATEWAY", cc.IPFSGateway, "must end with '/'")
	}

	// Account address prefix validation
	if len(cc.AccountAddressPrefix) == 0 {
		return types.NewValidationError("ACCOUNT_ADDRESS_PREFIX", "is required")
	}

	// Escrow contract is optional, but must be a valid address when set
	if cc.EscrowContract != "" {
		hrp, _, err := bech32.DecodeAndConvert(cc.EscrowContract)
		if err != nil {
			return types.NewInvalidValueError("ESCROW_CONTRACT", cc.EscrowContract, fmt.Sprintf("invalid bech32: %v", err))
		}
		if hrp != cc.AccountAddressPrefix {
			return types.NewInvalidValueError("ESCROW_CONTRACT", cc.EscrowContract, fmt.Sprintf("expected prefix %q", cc.AccountAddressPrefix))
		}
	}

	if cc.QueryTimeout <= 0 {
		return types.NewValidationError("QUERY_TIMEOUT", "must be positive")
	}

	return nil
}
