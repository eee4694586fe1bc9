package rangeorders

import "errors"

var (
	// ErrInvalidParam represents an invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrUnsupportedChain is returned when a chain is missing from the registry
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrNoRangeOrderContract is returned when the minimum return cannot be queried on chain
	ErrNoRangeOrderContract = errors.New("range order contract not configured")

	// ErrNoQuoteRouter is returned when native prices cannot be quoted on chain
	ErrNoQuoteRouter = errors.New("quote router not configured")

	// ErrNoLiquidity is returned when a router quote comes back empty
	ErrNoLiquidity = errors.New("no liquidity for quote")

	// ErrQueryTimeout is returned when an on-chain query outlives its timeout
	ErrQueryTimeout = errors.New("query timed out")
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

func (e *InvalidParamError) Unwrap() error {
	return ErrInvalidParam
}

// ChainCallError wraps a failed on-chain read
type ChainCallError struct {
	Op  string
	Err error
}

func (e *ChainCallError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ChainCallError) Unwrap() error {
	return e.Err
}
