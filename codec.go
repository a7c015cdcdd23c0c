package id3vx

import (
	"bytes"
	"fmt"
	"io"
	utf8pkg "unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Text encoding keys as defined by ID3v2.3 for the leading encoding
// byte of text frames.
const (
	EncodingLatin1  byte = 0
	EncodingUTF16   byte = 1
	EncodingUTF16BE byte = 2
	EncodingUTF8    byte = 3
)

// A Codec is one of the four text encodings a frame may declare. It
// carries the separator pattern and character width that the field
// pipeline needs to find string boundaries on the wire.
//
// Codecs are immutable values; use CodecByKey or the package variables.
type Codec struct {
	key   byte
	name  string
	sep   []byte
	width int
}

var (
	Latin1  = Codec{EncodingLatin1, "ISO-8859-1", []byte{0}, 1}
	UTF16   = Codec{EncodingUTF16, "UTF-16", []byte{0, 0}, 2}
	UTF16BE = Codec{EncodingUTF16BE, "UTF-16BE", []byte{0, 0}, 2}
	UTF8    = Codec{EncodingUTF8, "UTF-8", []byte{0}, 1}
)

// CodecByKey resolves a codec from the magic number stored in the
// frame's encoding byte.
func CodecByKey(key byte) (Codec, error) {
	switch key {
	case EncodingLatin1:
		return Latin1, nil
	case EncodingUTF16:
		return UTF16, nil
	case EncodingUTF16BE:
		return UTF16BE, nil
	case EncodingUTF8:
		return UTF8, nil
	}
	return Codec{}, fmt.Errorf("id3vx: unknown text encoding %#x", key)
}

func (c Codec) Key() byte { return c.key }

func (c Codec) String() string { return c.name }

// Separator returns the null pattern that terminates a string in this
// encoding: one null byte for the single-byte encodings, two for the
// UTF-16 flavors.
func (c Codec) Separator() []byte { return c.sep }

// Width returns the character width in bytes.
func (c Codec) Width() int { return c.width }

// Read reads n characters (n * width bytes) from r.
func (c Codec) Read(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n*c.width)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Decode converts bytes in this encoding to a string. It is strict:
// invalid byte sequences for the encoding are an error. UTF-16 data
// without a byte order mark is taken to be little endian, which is what
// makes big-endian data under the BOM codec fail on unpaired
// surrogates rather than decode to garbage.
func (c Codec) Decode(b []byte) (string, error) {
	switch c.key {
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case EncodingUTF8:
		if !utf8pkg.Valid(b) {
			return "", fmt.Errorf("id3vx: invalid UTF-8 sequence")
		}
		return string(b), nil
	}

	endianness := unicode.BigEndian
	if c.key == EncodingUTF16 {
		endianness = unicode.LittleEndian
		if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
			endianness = unicode.BigEndian
			b = b[2:]
		} else if len(b) >= 2 && b[0] == 0xff && b[1] == 0xfe {
			b = b[2:]
		}
	}
	if err := validUTF16(b, endianness == unicode.BigEndian); err != nil {
		return "", err
	}
	out, err := unicode.UTF16(endianness, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// validUTF16 rejects odd-length data and unpaired surrogates. The
// x/text decoder substitutes U+FFFD for both instead of failing.
func validUTF16(b []byte, bigEndian bool) error {
	if len(b)%2 != 0 {
		return fmt.Errorf("id3vx: odd-length UTF-16 data (%d bytes)", len(b))
	}
	unit := func(i int) uint16 {
		if bigEndian {
			return uint16(b[i])<<8 | uint16(b[i+1])
		}
		return uint16(b[i]) | uint16(b[i+1])<<8
	}
	for i := 0; i < len(b); i += 2 {
		u := unit(i)
		switch {
		case u >= 0xd800 && u < 0xdc00:
			if i+2 >= len(b) {
				return fmt.Errorf("id3vx: unpaired UTF-16 surrogate %#x", u)
			}
			if next := unit(i + 2); next < 0xdc00 || next >= 0xe000 {
				return fmt.Errorf("id3vx: unpaired UTF-16 surrogate %#x", u)
			}
			i += 2
		case u >= 0xdc00 && u < 0xe000:
			return fmt.Errorf("id3vx: unpaired UTF-16 surrogate %#x", u)
		}
	}
	return nil
}

// Encode converts a string to bytes in this encoding, appending the
// codec's separator when terminated is set. The UTF-16 codec writes a
// little-endian byte order mark, Latin-1 fails on runes outside the
// character set.
func (c Codec) Encode(s string, terminated bool) ([]byte, error) {
	var out []byte
	switch c.key {
	case EncodingLatin1:
		b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, err
		}
		out = b
	case EncodingUTF8:
		out = []byte(s)
	case EncodingUTF16:
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, err
		}
		out = b
	case EncodingUTF16BE:
		b, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, err
		}
		out = b
	}
	if terminated {
		out = append(out, c.sep...)
	}
	return out, nil
}

// Split cuts b at the codec's separator, honoring the character width
// so that a high or low zero byte inside a UTF-16 character is never
// mistaken for a separator. maxsplit bounds the number of cuts; -1
// means unbounded. The UTF-16 codec splits from the right (a character
// with a zero low byte next to a terminator produces three consecutive
// null bytes, which a bounded left-to-right split would misread), so a
// bounded split keeps the rightmost cuts and leaves excess leading
// parts joined with their separators. A trailing empty part produced
// by a terminating separator is dropped.
func (c Codec) Split(b []byte, maxsplit int) [][]byte {
	var cuts []int
	for i := 0; i+c.width <= len(b); i += c.width {
		if bytes.Equal(b[i:i+c.width], c.sep) {
			cuts = append(cuts, i)
		}
	}
	if maxsplit >= 0 && len(cuts) > maxsplit {
		if c.key == EncodingUTF16 {
			cuts = cuts[len(cuts)-maxsplit:]
		} else {
			cuts = cuts[:maxsplit]
		}
	}

	parts := make([][]byte, 0, len(cuts)+1)
	prev := 0
	for _, cut := range cuts {
		parts = append(parts, b[prev:cut])
		prev = cut + c.width
	}
	parts = append(parts, b[prev:])

	if len(parts) > 1 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// SplitDecode splits b at the codec's separator and decodes each part.
func (c Codec) SplitDecode(b []byte, maxsplit int) ([]string, error) {
	parts := c.Split(b, maxsplit)
	out := make([]string, len(parts))
	for i, part := range parts {
		s, err := c.Decode(part)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
