package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RangeOrderParams is the getMinReturn argument tuple.
// Field names match the ABI components so abi.Pack can encode the struct.
type RangeOrderParams struct {
	Pool          common.Address
	ZeroForOne    bool
	TickThreshold *big.Int // int24
	AmountIn      *big.Int
	Receiver      common.Address
	MaxFeeAmount  *big.Int
}

// TokenMetadata holds the ERC20 fields needed to build a currency
type TokenMetadata struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
	Name     string
}

// ERC20 ABI JSON for the metadata getters
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "symbol",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "name",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	}
]`

// Router ABI JSON for getAmountsOut
const routerABIJSON = `[
	{
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// RangeOrder ABI JSON for getMinReturn
const rangeOrderABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"name": "pool", "type": "address"},
					{"name": "zeroForOne", "type": "bool"},
					{"name": "tickThreshold", "type": "int24"},
					{"name": "amountIn", "type": "uint256"},
					{"name": "receiver", "type": "address"},
					{"name": "maxFeeAmount", "type": "uint256"}
				],
				"name": "params_",
				"type": "tuple"
			}
		],
		"name": "getMinReturn",
		"outputs": [{"name": "minReturn", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	erc20ABI      = mustParseABI("ERC20", erc20ABIJSON)
	routerABI     = mustParseABI("Router", routerABIJSON)
	rangeOrderABI = mustParseABI("RangeOrder", rangeOrderABIJSON)
)

func mustParseABI(name, data string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(data))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI {
	return erc20ABI
}

// GetRouterABI returns the parsed Router ABI
func GetRouterABI() abi.ABI {
	return routerABI
}

// GetRangeOrderABI returns the parsed RangeOrder ABI
func GetRangeOrderABI() abi.ABI {
	return rangeOrderABI
}
