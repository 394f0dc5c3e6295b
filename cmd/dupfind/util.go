package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// parseSize parses a human-readable size string (SI suffixes k/M/G/T/P/E,
// base 1000) into bytes, matching --minimum-size's documented format.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// nonUTF8Marker prefixes the best-effort debug form used to serialize a
// path whose raw bytes are not valid UTF-8.
const nonUTF8Marker = "\x00non-utf8:"

// jsonSafePath returns path unchanged if it is valid UTF-8, or a
// deterministic, always-valid-UTF-8 debug form otherwise.
func jsonSafePath(path string) string {
	if utf8.ValidString(path) {
		return path
	}
	return nonUTF8Marker + fmt.Sprintf("%q", path)
}
