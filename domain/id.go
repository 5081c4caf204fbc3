// Package domain holds the immutable value objects decoded from upstream
// chat-service JSON: guilds, channels, users, members, roles, messages and
// their nested entities. Every value is constructed once by a From*
// function and never mutated afterward.
package domain

import (
	"strconv"
	"time"
)

// epochMs is the fixed epoch (2015-01-01T00:00:00Z) whose milliseconds
// offset is encoded in the high 42 bits of an Id.
const epochMs int64 = 1420070400000

// Id is a 64-bit monotonic identifier. Its high 42 bits encode
// milliseconds since epochMs, so two ids compare the same way their
// creation timestamps do.
type Id uint64

// ParseId parses a decimal string id. Accepts only base-10 digits; an
// ISO-8601 date string is parsed with ParseIdFromDate instead.
func ParseId(s string) (Id, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Id(v), nil
}

// ParseIdFlexible accepts either a decimal id string or an ISO-8601
// date/time string, trying ParseId first. It is what the config
// surface's after/before fields parse against, per spec.md §6.
func ParseIdFlexible(s string) (Id, error) {
	if id, err := ParseId(s); err == nil {
		return id, nil
	}
	return ParseIdFromDate(s)
}

// ParseIdFromDate parses an ISO-8601 date/time string and derives the id
// that would have been minted at that instant.
func ParseIdFromDate(s string) (Id, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Fall back to a bare date, the common case for --before/--after flags.
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return 0, err
		}
	}
	return IdFromTime(t), nil
}

// IdFromTime derives an id whose embedded timestamp is t, with the
// low 22 bits zeroed (no worker/process/increment component is known).
func IdFromTime(t time.Time) Id {
	ms := t.UnixMilli() - epochMs
	if ms < 0 {
		ms = 0
	}
	return Id(uint64(ms) << 22)
}

// Time returns the instant embedded in the id's high 42 bits.
func (id Id) Time() time.Time {
	ms := int64(uint64(id)>>22) + epochMs
	return time.UnixMilli(ms).UTC()
}

// String renders the id as a decimal string; ParseId(id.String()) == id.
func (id Id) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsZero reports whether id is the zero value (used as "absent"/DM-guild sentinel).
func (id Id) IsZero() bool { return id == 0 }

// Less provides the total order used to sort messages ascending by id.
func (id Id) Less(other Id) bool { return id < other }

// MarshalText implements encoding.TextMarshaler so Id can be embedded directly
// in TOML config fields and JSON output without a custom field type.
func (id Id) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Id) UnmarshalText(text []byte) error {
	v, err := ParseId(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
