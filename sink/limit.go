package sink

import (
	"fmt"
	"strconv"
	"strings"
)

// Limit decides when the current partition file should be rolled over.
type Limit interface {
	isReached(messagesWritten int, bytesWritten int64) bool
}

// NullLimit never rolls a partition over.
type NullLimit struct{}

func (NullLimit) isReached(int, int64) bool { return false }

// MessageCountLimit rolls over once n messages have been written to the
// current partition.
type MessageCountLimit struct{ N int }

func (l MessageCountLimit) isReached(messagesWritten int, _ int64) bool {
	return messagesWritten >= l.N
}

// ByteSizeLimit rolls over once the current partition's byte budget is
// reached.
type ByteSizeLimit struct{ Bytes int64 }

func (l ByteSizeLimit) isReached(_ int, bytesWritten int64) bool {
	return bytesWritten >= l.Bytes
}

// ParseLimit parses a partition-limit string: a bare integer is a
// MessageCountLimit, a size suffix ("10mb", "500kb", "1gb", 1000-based
// magnitudes) is a ByteSizeLimit, and an empty string is NullLimit.
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullLimit{}, nil
	}
	lower := strings.ToLower(s)
	for suffix, mul := range sizeMagnitudes {
		if strings.HasSuffix(lower, suffix) {
			numPart := strings.TrimSpace(strings.TrimSuffix(lower, suffix))
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return nil, fmt.Errorf("sink: invalid size limit %q: %w", s, err)
			}
			return ByteSizeLimit{Bytes: int64(n * float64(mul))}, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("sink: invalid partition limit %q: %w", s, err)
	}
	return MessageCountLimit{N: n}, nil
}

var sizeMagnitudes = map[string]int64{
	"kb": 1_000,
	"mb": 1_000_000,
	"gb": 1_000_000_000,
}
