package rangeorders

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/kaifufi/range-orders-sdk-go/currency"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDEthereum  ChainID = 1
	ChainIDRopsten   ChainID = 3
	ChainIDGoerli    ChainID = 5
	ChainIDBSC       ChainID = 56
	ChainIDPolygon   ChainID = 137
	ChainIDFantom    ChainID = 250
	ChainIDAvalanche ChainID = 43114
	ChainIDSepolia   ChainID = 11155111
)

const (
	// DefaultSlippageBPS is the slippage tolerance applied by range order execution
	DefaultSlippageBPS int64 = 40
	// DefaultFeeBPS is the protocol fee charged by range order execution
	DefaultFeeBPS int64 = 10
	// DefaultExecutionGasLimit is the gas an executor spends filling one order
	DefaultExecutionGasLimit uint64 = 400_000
)

// IsEthereumChain reports whether the chain is Ethereum mainnet or one of its testnets.
// These chains settle fees and slippage at execution time.
func IsEthereumChain(id ChainID) bool {
	switch id {
	case ChainIDEthereum, ChainIDRopsten, ChainIDGoerli, ChainIDSepolia:
		return true
	default:
		return false
	}
}

//go:embed chains.yaml
var defaultChainsYAML []byte

// NativeInfo describes the native currency of a chain
type NativeInfo struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

// ChainInfo holds the static settings of one chain
type ChainInfo struct {
	ID            ChainID    `yaml:"id"`
	Name          string     `yaml:"name"`
	SimpleRouting bool       `yaml:"simple_routing"`
	Native        NativeInfo `yaml:"native"`
	WrappedNative string     `yaml:"wrapped_native"`
	Router        string     `yaml:"router"`
	RangeOrder    string     `yaml:"range_order"`
	SlippageBPS   int64      `yaml:"slippage_bps"`
	FeeBPS        int64      `yaml:"fee_bps"`
}

// NativeCurrency returns the chain's gas currency
func (i ChainInfo) NativeCurrency() currency.Currency {
	return currency.NewNative(int64(i.ID), i.Native.Decimals, i.Native.Symbol, i.Native.Name)
}

// WrappedNativeAddress returns the ERC20 wrapper of the native currency
func (i ChainInfo) WrappedNativeAddress() common.Address {
	return common.HexToAddress(i.WrappedNative)
}

// Fees returns the chain's fee constants, falling back to the package defaults
func (i ChainInfo) Fees() FeeConstants {
	fees := FeeConstants{Slippage: i.SlippageBPS, Fee: i.FeeBPS}
	if fees.Slippage == 0 {
		fees.Slippage = DefaultSlippageBPS
	}
	if fees.Fee == 0 {
		fees.Fee = DefaultFeeBPS
	}
	return fees
}

// ChainRegistry maps chain IDs to their settings
type ChainRegistry struct {
	chains map[ChainID]ChainInfo
}

type registryFile struct {
	Chains []ChainInfo `yaml:"chains"`
}

// LoadChainRegistry parses a YAML chain registry
func LoadChainRegistry(data []byte) (*ChainRegistry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chain registry: %w", err)
	}

	chains := make(map[ChainID]ChainInfo, len(file.Chains))
	for _, info := range file.Chains {
		if info.ID <= 0 {
			return nil, &InvalidParamError{Message: fmt.Sprintf("chain %q has invalid id %d", info.Name, info.ID)}
		}
		if _, dup := chains[info.ID]; dup {
			return nil, &InvalidParamError{Message: fmt.Sprintf("chain %d listed twice", info.ID)}
		}
		if info.Native.Decimals == 0 {
			info.Native.Decimals = 18
		}
		chains[info.ID] = info
	}

	return &ChainRegistry{chains: chains}, nil
}

// DefaultChainRegistry returns the embedded chain registry
func DefaultChainRegistry() *ChainRegistry {
	registry, err := LoadChainRegistry(defaultChainsYAML)
	if err != nil {
		panic("failed to parse embedded chain registry: " + err.Error())
	}
	return registry
}

// Lookup returns the settings of a chain
func (r *ChainRegistry) Lookup(id ChainID) (ChainInfo, bool) {
	info, ok := r.chains[id]
	return info, ok
}

// UsesSimpleRouting implements ChainClassifier. Unknown chains fall back to IsEthereumChain.
func (r *ChainRegistry) UsesSimpleRouting(id ChainID) bool {
	if info, ok := r.chains[id]; ok {
		return info.SimpleRouting
	}
	return IsEthereumChain(id)
}

// SupportedChainIDs lists the registered chains in ascending order
func (r *ChainRegistry) SupportedChainIDs() []ChainID {
	ids := make([]ChainID, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
