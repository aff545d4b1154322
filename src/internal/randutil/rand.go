// Package randutil generates random test data: payload bytes and sorted genomic intervals.
package randutil

import "math/rand"

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Bytes returns n random printable bytes.
func Bytes(random *rand.Rand, n int) []byte {
	bs := make([]byte, n)
	for i := range bs {
		bs[i] = letters[random.Intn(len(letters))]
	}
	return bs
}

// Interval is a half-open range of zero-based positions.
type Interval struct {
	Start, End int64
}

// IntervalOptions shapes the intervals produced by SortedIntervals.
type IntervalOptions struct {
	// MaxGap bounds the distance between consecutive starts.  Starts may repeat.
	MaxGap int64
	// MaxLength bounds the length of most intervals.  Every interval is at least 1 long.
	MaxLength int64
	// LongEvery and MaxLongLength make about one interval in LongEvery up to MaxLongLength
	// long.  A LongEvery of zero disables long intervals.
	LongEvery     int
	MaxLongLength int64
}

// SortedIntervals returns n intervals sorted by start, beginning at or after 0.
func SortedIntervals(random *rand.Rand, n int, o IntervalOptions) []Interval {
	ivs := make([]Interval, n)
	var pos int64
	for i := range ivs {
		if o.MaxGap > 0 {
			pos += random.Int63n(o.MaxGap)
		}
		length := int64(1)
		if o.MaxLength > 1 {
			length += random.Int63n(o.MaxLength - 1)
		}
		if o.LongEvery > 0 && o.MaxLongLength > 1 && random.Intn(o.LongEvery) == 0 {
			length = 1 + random.Int63n(o.MaxLongLength-1)
		}
		ivs[i] = Interval{Start: pos, End: pos + length}
	}
	return ivs
}
