package segment

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Encode renders msg as the payload bytes for enc. GSM-7 output is unpacked,
// one septet per byte, with extension characters preceded by the escape
// septet. UCS-2 output is big-endian UTF-16 without a byte order mark.
func Encode(msg string, enc Encoding) ([]byte, error) {
	switch enc {
	case GSM7:
		return encodeGSM7(msg)
	case UCS2:
		out, err := ucs2.NewEncoder().Bytes([]byte(msg))
		if err != nil {
			return nil, fmt.Errorf("encode ucs-2: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown encoding %d", int(enc))
	}
}

func encodeGSM7(msg string) ([]byte, error) {
	out := make([]byte, 0, len(msg))
	for i, r := range msg {
		if code, ok := gsm7Basic[r]; ok {
			out = append(out, code)
			continue
		}
		if code, ok := gsm7Extension[r]; ok {
			out = append(out, escape, code)
			continue
		}
		return nil, fmt.Errorf("encode gsm-7: %q at byte %d is not in the default alphabet", r, i)
	}
	return out, nil
}
