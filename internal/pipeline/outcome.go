package pipeline

// Outcome tags what happened to one inbound message. Every outcome is
// terminal for its message: it is logged, counted and discarded.
type Outcome int

const (
	OutcomeEmitted      Outcome = iota // RSI computed and accepted by the sink
	OutcomeGated                       // price recorded, window below MinSamples
	OutcomeFiltered                    // instrument not on the allow-list
	OutcomeEmptyPayload                // message carried no body
	OutcomeNotText                     // body is not valid UTF-8
	OutcomeParseError                  // body does not match the trade schema
	OutcomeEncodeError                 // outbound event could not be serialized
	OutcomeSendError                   // sink rejected the outbound event
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeGated:
		return "gated"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeEmptyPayload:
		return "empty_payload"
	case OutcomeNotText:
		return "not_text"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeEncodeError:
		return "encode_error"
	case OutcomeSendError:
		return "send_error"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome is one of the logged error kinds.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeEmitted, OutcomeGated, OutcomeFiltered:
		return false
	default:
		return true
	}
}
