package id3vx

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
)

// FieldKind enumerates the wire shapes a frame field can take.
type FieldKind int

const (
	KindInteger FieldKind = iota
	KindGrowingInteger
	KindSynchsafeInteger
	KindEnum
	KindCodec
	KindBinary
	KindText
	KindEncodedText
	KindFixedLengthText
)

// A Field describes one value in a frame payload. Length is in bytes
// for integers and binary data and in characters for fixed-length
// text; -1 on a binary field consumes the rest of the payload.
type Field struct {
	Kind   FieldKind
	Name   string
	Length int
	Enum   func(uint64) error
}

// Fields is the declarative wire layout of a frame payload. The order
// of the list is the wire order; a codec field always precedes the
// encoded text fields it applies to.
type Fields []Field

func IntegerField(name string, length int) Field {
	return Field{Kind: KindInteger, Name: name, Length: length}
}

// GrowingIntegerField consumes the rest of the payload as one
// big-endian integer. Play counters use it because they may outgrow
// 32 bits.
func GrowingIntegerField(name string) Field {
	return Field{Kind: KindGrowingInteger, Name: name}
}

func SynchsafeIntegerField(name string) Field {
	return Field{Kind: KindSynchsafeInteger, Name: name, Length: 4}
}

// EnumField reads an integer and validates it against a closed value
// set; values outside the set fail the whole read.
func EnumField(name string, length int, valid func(uint64) error) Field {
	return Field{Kind: KindEnum, Name: name, Length: length, Enum: valid}
}

// CodecField reads one encoding byte, resolves it to a Codec and makes
// it the active codec for the encoded text fields that follow.
func CodecField() Field {
	return Field{Kind: KindCodec, Name: "codec", Length: 1}
}

func BinaryField(name string, length int) Field {
	return Field{Kind: KindBinary, Name: name, Length: length}
}

// TextField reads up to (and consuming) the default codec's separator,
// regardless of any codec field in the pipeline. URLs and MIME types
// are always Latin-1 on the wire.
func TextField(name string) Field {
	return Field{Kind: KindText, Name: name}
}

// EncodedTextField reads up to the active codec's separator, using its
// character width.
func EncodedTextField(name string) Field {
	return Field{Kind: KindEncodedText, Name: name}
}

func FixedLengthTextField(name string, length int) Field {
	return Field{Kind: KindFixedLengthText, Name: name, Length: length}
}

// Context is the state shared by the fields of a single frame read or
// write: the active codec, the default codec for encoding-independent
// text, and whether the current field is the pipeline's last (the last
// text field carries no terminating separator). A Context must not be
// reused across frames.
type Context struct {
	Codec   Codec
	Default Codec
	Last    bool
}

// NewContext returns a context with Latin-1 active, the default
// specified by ID3v2.3.
func NewContext() *Context {
	return &Context{Codec: Latin1, Default: Latin1}
}

// Read executes the pipeline in wire order against r, producing a
// name→value record. Integers read as uint64, growing integers as
// *big.Int, text as string, binary as []byte and codec fields as
// Codec.
func (fs Fields) Read(r *bytes.Reader, ctx *Context) (map[string]any, error) {
	values := make(map[string]any, len(fs))
	for i, f := range fs {
		ctx.Last = i == len(fs)-1
		v, err := f.read(r, ctx)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[f.Name] = v
	}
	return values, nil
}

func (f Field) read(r *bytes.Reader, ctx *Context) (any, error) {
	switch f.Kind {
	case KindInteger:
		return readUint(r, f.Length)
	case KindGrowingInteger:
		rest := make([]byte, r.Len())
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(rest), nil
	case KindSynchsafeInteger:
		n, err := readUint(r, 4)
		if err != nil {
			return nil, err
		}
		return uint64(Unsynchsafe(uint32(n))), nil
	case KindEnum:
		n, err := readUint(r, f.Length)
		if err != nil {
			return nil, err
		}
		if err := f.Enum(n); err != nil {
			return nil, err
		}
		return n, nil
	case KindCodec:
		key, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		codec, err := CodecByKey(key)
		if err != nil {
			return nil, err
		}
		ctx.Codec = codec
		return codec, nil
	case KindBinary:
		if f.Length < 0 {
			rest := make([]byte, r.Len())
			if _, err := io.ReadFull(r, rest); err != nil {
				return nil, err
			}
			return rest, nil
		}
		b := make([]byte, f.Length)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		return b, nil
	case KindText:
		return readTerminated(r, ctx.Default)
	case KindEncodedText:
		return readTerminated(r, ctx.Codec)
	case KindFixedLengthText:
		b, err := ctx.Default.Read(r, f.Length)
		if err != nil {
			return nil, err
		}
		return ctx.Default.Decode(b)
	}
	panic("id3vx: unknown field kind")
}

// readTerminated reads characters until the codec's separator or the
// end of the stream. The separator is consumed but not part of the
// value.
func readTerminated(r *bytes.Reader, c Codec) (string, error) {
	var buf []byte
	ch := make([]byte, c.Width())
	for {
		n, err := io.ReadFull(r, ch)
		buf = append(buf, ch[:n]...)
		if err != nil {
			// Stream end terminates the value; a partial trailing
			// character is kept and surfaces as a decode error.
			break
		}
		if bytes.Equal(ch, c.Separator()) {
			buf = buf[:len(buf)-c.Width()]
			break
		}
	}
	return c.Decode(buf)
}

func readUint(r *bytes.Reader, length int) (uint64, error) {
	if length > 8 {
		return 0, fmt.Errorf("id3vx: integer field of %d bytes", length)
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n, nil
}

// Append is the mirror of Read: it serializes the pipeline's values in
// wire order onto dst. Text fields are terminated with the codec's
// separator unless they are the pipeline's last field.
func (fs Fields) Append(dst []byte, values map[string]any, ctx *Context) ([]byte, error) {
	for i, f := range fs {
		ctx.Last = i == len(fs)-1
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("field %q: no value", f.Name)
		}
		var err error
		dst, err = f.append(dst, v, ctx)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return dst, nil
}

func (f Field) append(dst []byte, v any, ctx *Context) ([]byte, error) {
	switch f.Kind {
	case KindInteger, KindEnum:
		return appendUint(dst, v.(uint64), f.Length), nil
	case KindGrowingInteger:
		b := v.(*big.Int).Bytes()
		// Counters start out four bytes wide.
		for len(b) < 4 {
			b = append([]byte{0}, b...)
		}
		return append(dst, b...), nil
	case KindSynchsafeInteger:
		return appendUint(dst, uint64(Synchsafe(uint32(v.(uint64)))), 4), nil
	case KindCodec:
		codec := v.(Codec)
		ctx.Codec = codec
		return append(dst, codec.Key()), nil
	case KindBinary:
		return append(dst, v.([]byte)...), nil
	case KindText:
		b, err := ctx.Default.Encode(v.(string), !ctx.Last)
		if err != nil {
			return nil, err
		}
		return append(dst, b...), nil
	case KindEncodedText:
		b, err := ctx.Codec.Encode(v.(string), !ctx.Last)
		if err != nil {
			return nil, err
		}
		return append(dst, b...), nil
	case KindFixedLengthText:
		b, err := ctx.Default.Encode(v.(string), false)
		if err != nil {
			return nil, err
		}
		if len(b) != f.Length*ctx.Default.Width() {
			return nil, fmt.Errorf("id3vx: %d characters in a %d-character field", len(b), f.Length)
		}
		return append(dst, b...), nil
	}
	panic("id3vx: unknown field kind")
}

func appendUint(dst []byte, n uint64, length int) []byte {
	for i := length - 1; i >= 0; i-- {
		dst = append(dst, byte(n>>(8*i)))
	}
	return dst
}
