package streaming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var rangeRegex = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// RangeResult classifies a Range header against an object size.
type RangeResult int

const (
	// RangeNone means serve the whole object: no header, or one we do not understand.
	RangeNone RangeResult = iota
	RangeOK
	RangeUnsatisfiable
)

// ByteRange is an inclusive byte interval.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range value for a satisfiable range.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange interprets a single "bytes=" range. Multi-range and malformed
// headers yield RangeNone. The end offset is clamped to size-1.
func ParseRange(header string, size int64) (ByteRange, RangeResult) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, RangeNone
	}

	matches := rangeRegex.FindStringSubmatch(header)
	if matches == nil {
		return ByteRange{}, RangeNone
	}
	startStr, endStr := matches[1], matches[2]

	switch {
	case startStr == "" && endStr == "":
		return ByteRange{}, RangeNone

	case startStr == "":
		// bytes=-N, the last N bytes
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return ByteRange{}, RangeNone
		}
		if suffix == 0 || size == 0 {
			return ByteRange{}, RangeUnsatisfiable
		}
		return ByteRange{Start: max(size-suffix, 0), End: size - 1}, RangeOK
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return ByteRange{}, RangeNone
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, RangeNone
		}
	}

	if start >= size {
		return ByteRange{}, RangeUnsatisfiable
	}
	return ByteRange{Start: start, End: min(end, size-1)}, RangeOK
}
