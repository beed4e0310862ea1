package main

import (
	"testing"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := parseRequest([]string{"de:ad:be:ef:ca:fe", "GET", "humidity"})
	require.NoError(t, err)
	assert.Equal(t, "DE:AD:BE:EF:CA:FE", req.address.String())
	assert.Equal(t, acinfinity.ReadSensors{}, req.command)
	assert.Equal(t, "humidity", req.field)
	assert.Equal(t, "Reading sensors from DE:AD:BE:EF:CA:FE", req.describe())

	req, err = parseRequest([]string{"DE:AD:BE:EF:CA:FE", "set", "0"})
	require.NoError(t, err)
	assert.Equal(t, acinfinity.SetFanLevel{Level: 0}, req.command)
	assert.Equal(t, "Setting fan level 0 on DE:AD:BE:EF:CA:FE", req.describe())
}

func TestParseRequestRejects(t *testing.T) {
	tests := map[string][]string{
		"no action":      {"DE:AD:BE:EF:CA:FE"},
		"extra argument": {"DE:AD:BE:EF:CA:FE", "set", "1", "2"},
		"bad address":    {"not-a-mac", "get"},
		"level 11":       {"DE:AD:BE:EF:CA:FE", "set", "11"},
		"fractional":     {"DE:AD:BE:EF:CA:FE", "set", "2.5"},
		"unknown field":  {"DE:AD:BE:EF:CA:FE", "get", "pressure"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseRequest(args)
			require.Error(t, err)
			assert.ErrorIs(t, err, acinfinity.ErrInvalidArgument, "%s MUST be an invalid argument", name)
		})
	}
}
