// Package encoding provides the table-driven percent-encoding and
// percent-decoding maps the surrogate model and chain compiler use to
// reason about byte-exact URL transformations. Every byte 0x00-0xFF is
// represented; nothing is routed through the host's URL library.
package encoding

import "fmt"

// EncodingMap maps a raw byte to its canonical percent-encoded form.
var EncodingMap [256]string

// DecodingMap maps a percent-encoded triplet (e.g. "%2F") to its raw
// byte, expressed as a one-byte string so it composes directly with
// string-theory rewrite rules.
var DecodingMap map[string]string

func init() {
	DecodingMap = make(map[string]string, 256)
	for b := 0; b < 256; b++ {
		enc := fmt.Sprintf("%%%02X", b)
		EncodingMap[b] = enc
		DecodingMap[enc] = string([]byte{byte(b)})
		// also register the lowercase-hex form; servers disagree on case
		encLower := fmt.Sprintf("%%%02x", b)
		if encLower != enc {
			DecodingMap[encLower] = string([]byte{byte(b)})
		}
	}
}

// Encode returns the canonical upper-case percent-encoding of b.
func Encode(b byte) string {
	return EncodingMap[b]
}

// Decode returns the raw byte for a percent-encoded triplet like "%2F",
// and whether the triplet was recognized.
func Decode(triplet string) (string, bool) {
	v, ok := DecodingMap[triplet]
	return v, ok
}

// DecodeOrdered applies the full DECODING_MAP to s, processing every
// encoded byte value except %25 first, then %25 last. This mirrors
// spec.md §4.3: decoding %25 last prevents an attacker-escaped percent
// sign (e.g. "%2520") from being fully decoded down to a raw space in
// one pass ("%2520" -> "%20", not " ").
func DecodeOrdered(s string) string {
	out := s
	for enc, raw := range DecodingMap {
		if enc == "%25" {
			continue
		}
		out = replaceAll(out, enc, raw)
	}
	out = replaceAll(out, "%25", "%")
	return out
}

func replaceAll(s, old, new string) string {
	if old == "" {
		return s
	}
	var b []byte
	for i := 0; i < len(s); {
		if i+len(old) <= len(s) && s[i:i+len(old)] == old {
			b = append(b, new...)
			i += len(old)
		} else {
			b = append(b, s[i])
			i++
		}
	}
	return string(b)
}
