package connection

import (
	"errors"
	"testing"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/stretchr/testify/assert"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", succeeded(acinfinity.Ack{}).String())
	assert.Equal(t, "retryable (response_timeout): no reply",
		retryable(ReasonResponseTimeout, errors.New("no reply")).String())
	assert.Equal(t, "fatal (protocol_mismatch): missing characteristic",
		fatal(ReasonProtocolMismatch, errors.New("missing characteristic")).String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
