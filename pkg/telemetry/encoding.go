// Package telemetry implements the wire codec used between the streamer and
// the peripheral: comma-separated decimal float32 text, UTF-8, no framing,
// no checksum. The peripheral's firmware parses the stream with a bare
// string split, so the format must stay exactly this.
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StopToken is the reserved control payload meaning "stop/off". It is the
// only control token the peripheral understands.
const StopToken = "2.0"

// InvalidNumberError reports a payload field that does not parse as a
// float32. Index is the zero-based position of the offending field.
type InvalidNumberError struct {
	Index int
	Token string
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("telemetry decode: invalid number %q at index %d", e.Token, e.Index)
}

func formatValue(v float32) string {
	switch {
	case math.IsNaN(float64(v)):
		return "nan"
	case math.IsInf(float64(v), 1):
		return "inf"
	case math.IsInf(float64(v), -1):
		return "-inf"
	}
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// Encode renders each value as its shortest decimal representation that
// round-trips at float32 precision, joined by single commas with no trailing
// separator. NaN and infinities render as "nan", "inf" and "-inf"; the
// reduction pipeline can legitimately produce them and they must survive the
// wire. An empty sequence encodes to an empty payload.
func Encode(values []float32) []byte {
	if len(values) == 0 {
		return []byte{}
	}
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = formatValue(v)
	}
	return []byte(strings.Join(fields, ","))
}

// Decode is the inverse of Encode. A malformed field yields an
// *InvalidNumberError carrying its index; nothing is silently skipped. An
// empty payload decodes to an empty sequence.
func Decode(payload []byte) ([]float32, error) {
	if len(payload) == 0 {
		return []float32{}, nil
	}
	fields := strings.Split(string(payload), ",")
	values := make([]float32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, &InvalidNumberError{Index: i, Token: field}
		}
		values[i] = float32(v)
	}
	return values, nil
}

// Stop returns the reserved stop/off control payload.
func Stop() []byte {
	return []byte(StopToken)
}
