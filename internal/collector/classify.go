package collector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// RangeLimitClassifier labels provider errors that indicate the queried block
// range exceeded the provider's undisclosed limit. It is a heuristic over
// provider conventions: numeric JSON-RPC codes plus case-sensitive message
// substrings, checked on the error itself and one level of nesting (some
// providers wrap the real fault inside a coalesced error). Extend the tables
// rather than branching in the fetch path.
type RangeLimitClassifier struct {
	Codes      []int
	Substrings []string
}

// DefaultRangeLimitClassifier covers the conventions seen across common RPC
// providers. The set is not exhaustive.
func DefaultRangeLimitClassifier() RangeLimitClassifier {
	return RangeLimitClassifier{
		Codes: []int{-32005, -32062, -32602, -32616},
		Substrings: []string{
			"block range",
			"range limit",
			"too large",
			"too many blocks",
			"too many results",
			"exceed",
			"eth_getLogs",
			"could not coalesce",
		},
	}
}

// IsRangeLimit reports whether err looks like a block-range-limit rejection.
func (c RangeLimitClassifier) IsRangeLimit(err error) bool {
	if err == nil {
		return false
	}
	if c.matches(err) {
		return true
	}
	if inner := errors.Unwrap(err); inner != nil && c.matches(inner) {
		return true
	}
	return false
}

func (c RangeLimitClassifier) matches(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code := rpcErr.ErrorCode()
		for _, known := range c.Codes {
			if code == known {
				return true
			}
		}
	}

	if c.matchesMessage(err.Error()) {
		return true
	}

	// Coalesced shape: the real fault rides in the data field.
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := dataErr.ErrorData(); data != nil {
			if c.matchesMessage(fmt.Sprintf("%v", data)) {
				return true
			}
		}
	}

	return false
}

func (c RangeLimitClassifier) matchesMessage(msg string) bool {
	for _, substr := range c.Substrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
