package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		want   ByteRange
		result RangeResult
	}{
		{"no header", "", 1000, ByteRange{}, RangeNone},
		{"first hundred", "bytes=0-99", 1000, ByteRange{0, 99}, RangeOK},
		{"open ended", "bytes=500-", 1000, ByteRange{500, 999}, RangeOK},
		{"suffix", "bytes=-100", 1000, ByteRange{900, 999}, RangeOK},
		{"suffix larger than object", "bytes=-5000", 1000, ByteRange{0, 999}, RangeOK},
		{"end clamped", "bytes=990-2000", 1000, ByteRange{990, 999}, RangeOK},
		{"single byte", "bytes=0-0", 1000, ByteRange{0, 0}, RangeOK},
		{"last byte", "bytes=999-999", 1000, ByteRange{999, 999}, RangeOK},
		{"padded", "  bytes=1-2 ", 1000, ByteRange{1, 2}, RangeOK},
		{"start past end", "bytes=1000-", 1000, ByteRange{}, RangeUnsatisfiable},
		{"start far past end", "bytes=5000-6000", 1000, ByteRange{}, RangeUnsatisfiable},
		{"zero suffix", "bytes=-0", 1000, ByteRange{}, RangeUnsatisfiable},
		{"empty object", "bytes=0-", 0, ByteRange{}, RangeUnsatisfiable},
		{"end before start", "bytes=50-10", 1000, ByteRange{}, RangeNone},
		{"wrong unit", "items=0-10", 1000, ByteRange{}, RangeNone},
		{"garbage", "bytes=abc", 1000, ByteRange{}, RangeNone},
		{"bare dash", "bytes=-", 1000, ByteRange{}, RangeNone},
		{"multi range", "bytes=0-1,5-6", 1000, ByteRange{}, RangeNone},
		{"overflow", "bytes=99999999999999999999-", 1000, ByteRange{}, RangeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, result := ParseRange(tt.header, tt.size)
			assert.Equal(t, tt.result, result)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteRangeHeaders(t *testing.T) {
	br := ByteRange{Start: 0, End: 99}
	assert.Equal(t, int64(100), br.Length())
	assert.Equal(t, "bytes 0-99/1000", br.ContentRange(1000))
}
