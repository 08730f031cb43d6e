package decoder

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const commentHeaderLen = 8

// decodeComment interprets the 8-byte character code prefix used by
// UserComment, GPSProcessingMethod and GPSAreaInformation.
func decodeComment(raw []byte) string {
	if len(raw) < commentHeaderLen {
		return cleanText(string(raw))
	}
	header := string(bytes.TrimRight(raw[:commentHeaderLen], "\x00"))
	body := raw[commentHeaderLen:]
	switch header {
	case "UNICODE":
		return cleanText(decodeUTF16(body))
	case "ASCII", "JIS", "":
		return cleanText(string(body))
	default:
		return cleanText(string(raw))
	}
}

// decodeUTF16 honours a BOM when present and otherwise guesses the byte
// order from where the zero bytes of ASCII-range characters fall.
func decodeUTF16(body []byte) string {
	order := unicode.BigEndian
	switch {
	case bytes.HasPrefix(body, []byte{0xFF, 0xFE}):
		order = unicode.LittleEndian
		body = body[2:]
	case bytes.HasPrefix(body, []byte{0xFE, 0xFF}):
		body = body[2:]
	default:
		var evenZero, oddZero int
		for i, b := range body {
			if b != 0 {
				continue
			}
			if i%2 == 0 {
				evenZero++
			} else {
				oddZero++
			}
		}
		if oddZero > evenZero {
			order = unicode.LittleEndian
		}
	}
	decoded, err := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func cleanText(s string) string {
	s = strings.TrimRight(s, "\x00 ")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}
