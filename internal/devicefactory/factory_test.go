package devicefactory

import (
	"testing"

	"github.com/sirupsen/logrus"
	goble "github.com/srg/acinf/internal/device/go-ble"
	"github.com/srg/acinf/internal/device/tinygo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport(t *testing.T) {
	logger := logrus.New()

	tr, err := NewTransport("", logger)
	require.NoError(t, err)
	assert.IsType(t, &goble.Transport{}, tr, "empty backend MUST default to go-ble")

	tr, err = NewTransport("TinyGo", logger)
	require.NoError(t, err)
	assert.IsType(t, &tinygo.Transport{}, tr)

	_, err = NewTransport("bluez", logger)
	assert.ErrorContains(t, err, `unknown BLE backend "bluez"`)
}
