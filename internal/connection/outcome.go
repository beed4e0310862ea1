package connection

import (
	"fmt"

	"github.com/srg/acinf/internal/acinfinity"
)

// Kind classifies the result of one attempt.
type Kind int

const (
	// Success means a decoded response is available.
	Success Kind = iota
	// Retryable means the session may run another attempt.
	Retryable
	// Fatal means no further attempt can succeed.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason names why an attempt did not succeed.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNotFound           Reason = "not_found"
	ReasonConnectRefused     Reason = "connect_refused"
	ReasonResponseTimeout    Reason = "response_timeout"
	ReasonMalformedPayload   Reason = "malformed_payload"
	ReasonLinkLost           Reason = "link_lost"
	ReasonTransport          Reason = "transport"
	ReasonInvalidArgument    Reason = "invalid_argument"
	ReasonProtocolMismatch   Reason = "protocol_mismatch"
	ReasonAddressBusy        Reason = "address_busy"
	ReasonAdapterUnavailable Reason = "adapter_unavailable"
	ReasonCancelled          Reason = "cancelled"
)

// Outcome is the result of Manager.Attempt. Response is set only on Success;
// Reason and Err only otherwise.
type Outcome struct {
	Kind     Kind
	Response acinfinity.Response
	Reason   Reason
	Err      error
}

func succeeded(resp acinfinity.Response) Outcome {
	return Outcome{Kind: Success, Response: resp}
}

func retryable(reason Reason, err error) Outcome {
	return Outcome{Kind: Retryable, Reason: reason, Err: err}
}

func fatal(reason Reason, err error) Outcome {
	return Outcome{Kind: Fatal, Reason: reason, Err: err}
}

func (o Outcome) String() string {
	if o.Kind == Success {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s (%s): %v", o.Kind, o.Reason, o.Err)
}
