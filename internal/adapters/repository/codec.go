package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/metrics"
)

// tsLayout is fixed width so TEXT timestamps compare lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(tsLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func encodeBadges(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("%w: encode badges: %w", ErrInvalidMember, err)
	}
	return string(b), nil
}

// decodeBadges is lenient: unreadable badge lists load as empty. The SQL
// stores never overwrite such a column, so the stored badges survive until
// the row is repaired.
func decodeBadges(raw []byte) []string {
	var ids []string
	if len(raw) == 0 || json.Unmarshal(raw, &ids) != nil || ids == nil {
		return []string{}
	}
	return ids
}

// checkPoints rejects values that cannot be stored as JSON numbers.
func checkPoints(p model.DailyPoints) error {
	for day, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: points for %s are not finite", ErrInvalidMember, day)
		}
	}
	return nil
}

func encodePoints(p model.DailyPoints) (string, error) {
	if p == nil {
		return "{}", nil
	}
	if err := checkPoints(p); err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: encode points: %w", ErrInvalidMember, err)
	}
	return string(b), nil
}

// encodeMember returns the JSON columns of m.
func encodeMember(m model.MemberState) (points, badges string, err error) {
	if points, err = encodePoints(m.DailyPoints); err != nil {
		return "", "", err
	}
	if badges, err = encodeBadges(m.UnlockedBadges); err != nil {
		return "", "", err
	}
	return points, badges, nil
}

// decodePoints zeroes values that are not non-negative numbers and counts
// them as coerced.
func decodePoints(raw []byte) model.DailyPoints {
	p, coerced, err := model.DecodeDailyPoints(raw)
	if err != nil {
		metrics.RecordPointsCoerced()
		return model.DailyPoints{}
	}
	for i := 0; i < coerced; i++ {
		metrics.RecordPointsCoerced()
	}
	return p
}
