package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"strconv"
	"strings"
)

// DailyPoints maps day keys to accumulated points.
type DailyPoints map[string]float64

// Clone returns a copy of p that is never nil.
func (p DailyPoints) Clone() DailyPoints {
	out := make(DailyPoints, len(p))
	maps.Copy(out, p)
	return out
}

// UnmarshalJSON decodes a day-keyed object, coercing unusable values to 0.
func (p *DailyPoints) UnmarshalJSON(data []byte) error {
	out, _, err := DecodeDailyPoints(data)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// DecodeDailyPoints decodes a stored daily points object. Values that are
// not usable numbers become 0 and are counted in coerced. A JSON null or
// empty input yields an empty map.
func DecodeDailyPoints(data []byte) (DailyPoints, int, error) {
	out := DailyPoints{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, 0, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, err
	}
	coerced := 0
	for k, v := range raw {
		f, ok := ParsePoints(v)
		if !ok {
			coerced++
		}
		out[k] = f
	}
	return out, coerced, nil
}

// ParsePoints reads a point value from a JSON number or numeric string.
// Anything else (garbage strings, booleans, null, NaN, infinities,
// negatives) yields 0 with ok false. Absent input yields 0 with ok true.
func ParsePoints(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, true
	}
	s := string(raw)
	if raw[0] == '"' {
		var unq string
		if err := json.Unmarshal(raw, &unq); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// AddPoints returns a+b for non-negative finite operands, saturating at
// math.MaxFloat64 so an accumulated value never becomes +Inf.
func AddPoints(a, b float64) float64 {
	sum := a + b
	if math.IsInf(sum, 1) {
		return math.MaxFloat64
	}
	return sum
}

// Points is a tolerant numeric JSON value.
type Points float64

// UnmarshalJSON accepts numbers and numeric strings. It never fails.
func (p *Points) UnmarshalJSON(data []byte) error {
	f, _ := ParsePoints(data)
	*p = Points(f)
	return nil
}
