package model

// TradeEvent is one inbound trade for a tracked instrument.
// BlockTime is an opaque string and is passed through unmodified.
type TradeEvent struct {
	TokenAddress string  `json:"token_address"`
	PriceInSol   float64 `json:"price_in_sol"`
	BlockTime    string  `json:"block_time"`
	TxHash       string  `json:"tx_hash"`
	PoolAddress  string  `json:"pool_address"`
}
