package testutils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/stretchr/testify/assert"
)

// recordingT captures failures instead of failing the enclosing test.
type recordingT struct {
	errors []string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestJSONAsserter(t *testing.T) {
	reading := acinfinity.NewSensorReading(18.56, 70.03, 0.61)

	t.Run("matching reading", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).AssertReading(reading,
			`{"temperature_c": 18.56, "temperature_f": 65.408, "humidity": 70.03, "vpd_kpa": 0.61}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("key order is irrelevant", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"b": 1, "a": 2}`, `{"a": 2, "b": 1}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("value mismatch reports diff", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).AssertReading(reading,
			`{"temperature_c": 18.5, "temperature_f": 65.408, "humidity": 70.03, "vpd_kpa": 0.61}`)
		if assert.Len(t, rt.errors, 1) {
			assert.Contains(t, rt.errors[0], "temperature_c")
		}
	})

	t.Run("extra keys fail unless ignored", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{"a": 1, "b": 2}`, `{"a": 1}`)
		assert.Len(t, rt.errors, 1)

		rt = &recordingT{}
		NewJSONAsserter(rt).WithOptions(WithIgnoreExtraKeys(true)).Assert(`{"a": 1, "b": 2}`, `{"a": 1}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("presence placeholder and ignored fields", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).WithOptions(WithIgnoredFields("vpd_kpa")).AssertReading(reading,
			`{"temperature_c": "<<PRESENCE>>", "temperature_f": 65.408, "humidity": 70.03, "vpd_kpa": 9}`)
		assert.Empty(t, rt.errors)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rt := &recordingT{}
		NewJSONAsserter(rt).Assert(`{`, `{}`)
		if assert.Len(t, rt.errors, 1) {
			assert.Contains(t, rt.errors[0], "invalid actual JSON")
		}
	})
}

func TestTextAsserter(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).Assert("18.56\n", "18.56\n")
		assert.Empty(t, rt.errors)
	})

	t.Run("unified diff", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).Assert("a\nb\n", "a\nc\n")
		if assert.Len(t, rt.errors, 1) {
			assert.Contains(t, rt.errors[0], "-c")
			assert.Contains(t, rt.errors[0], "+b")
		}
	})

	t.Run("normalization", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).WithOptions(WithTrimSpace(true), WithIgnoreTrailingWhitespace(true)).
			Assert("\n a  \nb\t\n", "a\nb")
		assert.Empty(t, rt.errors)
	})

	t.Run("colors mark whitespace", func(t *testing.T) {
		rt := &recordingT{}
		NewTextAsserter(rt).WithOptions(WithEnableColors(true)).Assert("x y\n", "x\n")
		if assert.Len(t, rt.errors, 1) {
			assert.True(t, strings.Contains(rt.errors[0], "x·y"), "added line MUST show visible spaces")
			assert.Contains(t, rt.errors[0], "\x1b[")
		}
	})
}
