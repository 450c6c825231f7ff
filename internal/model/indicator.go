package model

// IndicatorEvent is the outbound RSI record for one instrument.
// Timestamp and Price are copied verbatim from the triggering TradeEvent.
type IndicatorEvent struct {
	TokenAddress string  `json:"token_address"`
	RSI          float64 `json:"rsi"`
	Timestamp    string  `json:"timestamp"`
	Price        float64 `json:"price"`
}

// NewIndicatorEvent builds the outbound event for a trade and its RSI value.
func NewIndicatorEvent(trade TradeEvent, rsi float64) IndicatorEvent {
	return IndicatorEvent{
		TokenAddress: trade.TokenAddress,
		RSI:          rsi,
		Timestamp:    trade.BlockTime,
		Price:        trade.PriceInSol,
	}
}

// Key returns the partition key for this event: the instrument identifier.
func (e *IndicatorEvent) Key() string {
	return e.TokenAddress
}
