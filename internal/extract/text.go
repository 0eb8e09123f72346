package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// FromText decodes data as UTF-8, replacing malformed sequences with U+FFFD.
// A leading byte order mark is dropped.
func FromText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
