package decode

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const perpABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "isLong", "type": "bool"},
      {"indexed": false, "internalType": "uint256", "name": "size", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "margin", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "entryPrice", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "leverage", "type": "uint256"}
    ],
    "name": "PositionOpened",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "size", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "exitPrice", "type": "uint256"},
      {"indexed": false, "internalType": "int256", "name": "pnl", "type": "int256"},
      {"indexed": false, "internalType": "uint256", "name": "marginReturned", "type": "uint256"}
    ],
    "name": "PositionClosed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "size", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "markPrice", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "penalty", "type": "uint256"}
    ],
    "name": "PositionLiquidated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "int256", "name": "fundingRate", "type": "int256"},
      {"indexed": false, "internalType": "uint256", "name": "indexPrice", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "markPrice", "type": "uint256"}
    ],
    "name": "FundingUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": false, "internalType": "int256", "name": "amount", "type": "int256"}
    ],
    "name": "FundingPaid",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "TradingFeeCollected",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "balance", "type": "uint256"}
    ],
    "name": "CollateralDeposited",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "balance", "type": "uint256"}
    ],
    "name": "CollateralWithdrawn",
    "type": "event"
  }
]`

var (
	perpABI     abi.ABI
	perpABIOnce sync.Once
	perpABIErr  error
)

// PerpABI returns the parsed perp contract event ABI.
func PerpABI() (abi.ABI, error) {
	perpABIOnce.Do(func() {
		perpABI, perpABIErr = abi.JSON(strings.NewReader(perpABIJSON))
	})
	return perpABI, perpABIErr
}
