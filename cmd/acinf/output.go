package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/srg/acinf/internal/acinfinity"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const jsonIndent = "    "

// writeResult prints the response for req on w. A full reading is a JSON
// object with the fields in FieldNames order, a single field is its bare
// value and a fan level acknowledgment prints nothing.
func writeResult(w io.Writer, req request, resp acinfinity.Response, compact bool) error {
	switch r := resp.(type) {
	case acinfinity.Ack:
		return nil
	case acinfinity.SensorReading:
		if req.field != "" {
			v, err := r.Field(req.field)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, formatValue(v))
			return err
		}
		data, err := readingJSON(r, compact)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return fmt.Errorf("unexpected response %T", resp)
	}
}

// readingJSON renders r with keys in field order.
func readingJSON(r acinfinity.SensorReading, compact bool) ([]byte, error) {
	om := orderedmap.New[string, float64]()
	for _, name := range acinfinity.FieldNames() {
		v, err := r.Field(name)
		if err != nil {
			return nil, err
		}
		om.Set(name, v)
	}
	if compact {
		return json.Marshal(om)
	}
	return json.MarshalIndent(om, "", jsonIndent)
}

// formatValue prints the shortest decimal that round-trips v.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
