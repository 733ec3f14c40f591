// Package segment works out how an alert travels as SMS: which character
// encoding it needs, how many concatenated parts it occupies and what those
// parts cost. Every function in this package is pure and safe for concurrent
// use.
package segment

import (
	"fmt"
	"unicode/utf16"
)

// Prefix is the vendor tag placed in front of every alert.
const Prefix = "Notifox: "

// Encoding is the SMS character encoding a message is sent with.
type Encoding int

const (
	GSM7 Encoding = iota // GSM 03.38 7-bit default alphabet
	UCS2                 // 16-bit code units
)

func (e Encoding) String() string {
	switch e {
	case GSM7:
		return "GSM-7"
	case UCS2:
		return "UCS-2"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	switch e {
	case GSM7, UCS2:
		return []byte(e.String()), nil
	default:
		return nil, fmt.Errorf("unknown encoding %d", int(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	enc, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = enc
	return nil
}

// ParseEncoding accepts the names produced by Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "GSM-7":
		return GSM7, nil
	case "UCS-2":
		return UCS2, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// Capacity holds the number of symbols a segment carries.
type Capacity struct {
	Single int // whole message fits in one segment
	Multi  int // per segment once a concatenation header is needed
}

var capacities = map[Encoding]Capacity{
	GSM7: {Single: 160, Multi: 153},
	UCS2: {Single: 70, Multi: 67},
}

// CapacityFor returns the segment capacities for enc.
// Unknown encodings get the UCS-2 row, the narrower of the two.
func CapacityFor(enc Encoding) Capacity {
	if c, ok := capacities[enc]; ok {
		return c
	}
	return capacities[UCS2]
}

// Compose applies the vendor tag to raw. raw is kept verbatim.
func Compose(raw string) string {
	return Prefix + raw
}

// Classify picks the encoding for msg and returns the symbol count used for
// segmentation. A single rune outside the GSM 03.38 tables moves the whole
// message to UCS-2, where the count is in UTF-16 code units.
func Classify(msg string) (Encoding, int) {
	septets := 0
	for _, r := range msg {
		n, ok := gsm7Symbols(r)
		if !ok {
			return UCS2, codeUnits(msg)
		}
		septets += n
	}
	return GSM7, septets
}

func codeUnits(msg string) int {
	units := 0
	// range decodes invalid UTF-8 to U+FFFD and never yields a surrogate,
	// so RuneLen is always 1 or 2 here.
	for _, r := range msg {
		units += utf16.RuneLen(r)
	}
	return units
}

// Segment returns the number of parts needed to carry symbols in enc.
// An empty message still takes one part.
func Segment(enc Encoding, symbols int) int {
	c := CapacityFor(enc)
	if symbols <= c.Single {
		return 1
	}
	return (symbols + c.Multi - 1) / c.Multi
}
