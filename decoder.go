package id3vx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

var tagHeaderFields = Fields{
	FixedLengthTextField("identifier", 3),
	IntegerField("major", 1),
	IntegerField("minor", 1),
	EnumField("flags", 1, validHeaderFlags),
	SynchsafeIntegerField("tag_size"),
}

// A Decoder reads an ID3v2 tag from a stream. The stream is owned by
// the caller; a decoder reads exactly one tag in a single bounded
// pass.
type Decoder struct {
	r io.Reader
	h TagHeader

	// payload holds the tag body once the header is parsed. Frames,
	// including lazily parsed CHAP sub-frames, are sliced from it.
	payload *bytes.Reader

	// TolerateAPICNulls makes APIC parsing strip up to three stray
	// null bytes some producers emit before the picture data. Off by
	// default: the strict reading follows the specification.
	TolerateAPICNulls bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Check reports whether r starts with an ID3v2 tag, without consuming
// it.
func Check(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(3)
	if err != nil {
		return false, err
	}
	return bytes.Equal(b, Magic[:]), nil
}

// ParseHeader parses only the 10-byte tag header and buffers the tag
// body for subsequent ParseFrame calls. It fails with NoTagError when
// the stream does not start with the ID3 marker and with
// UnsupportedError for versions below 2.3 or unsynchronised tags.
func (d *Decoder) ParseHeader() (TagHeader, error) {
	var b [TagHeaderSize]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A stream too short for a tag header holds no tag.
			return TagHeader{}, NoTagError{Magic: [3]byte(b[:3])}
		}
		return TagHeader{}, err
	}
	if !bytes.Equal(b[:3], Magic[:]) {
		return TagHeader{}, NoTagError{Magic: [3]byte(b[:3])}
	}

	values, err := tagHeaderFields.Read(bytes.NewReader(b[:]), NewContext())
	if err != nil {
		return TagHeader{}, fmt.Errorf("tag header: %w", err)
	}
	header := TagHeader{
		Version: Version(values["major"].(uint64)<<8 | values["minor"].(uint64)),
		Flags:   HeaderFlags(values["flags"].(uint64)),
		Size:    uint32(values["tag_size"].(uint64)),
	}

	if header.Version.Major() < 3 {
		return TagHeader{}, UnsupportedError{fmt.Sprintf("%s is not supported", header.Version)}
	}
	if header.Flags.Unsynchronisation() {
		return TagHeader{}, UnsupportedError{"unsynchronisation is not supported"}
	}
	if header.Flags.ExtendedHeader() {
		return TagHeader{}, UnsupportedError{"extended header is not supported"}
	}

	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return TagHeader{}, fmt.Errorf("tag body: %w", err)
	}

	d.h = header
	d.payload = bytes.NewReader(payload)

	return header, nil
}

// ParseFrame reads the next frame from the tag body. It returns io.EOF
// once the declared tag size is exhausted or a padding (zero size)
// header is hit. A caller that wants partial-tag resilience can call
// this directly and skip over frames that fail to decode.
func (d *Decoder) ParseFrame() (Frame, error) {
	if d.payload == nil {
		return nil, fmt.Errorf("id3vx: tag header not parsed")
	}
	if d.payload.Len() == 0 {
		return nil, io.EOF
	}

	opts := parseOptions{version: d.h.Version, lenientAPIC: d.TolerateAPICNulls}
	frame, err := parseNextFrame(d.payload, opts)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		// Padding fills the rest of the tag.
		return nil, io.EOF
	}
	return frame, nil
}

// Parse parses a whole tag: header, then consecutive frames up to the
// declared tag boundary or the first padding frame. Any frame that
// fails to decode aborts the parse; no partial tag is returned.
func (d *Decoder) Parse() (*Tag, error) {
	header, err := d.ParseHeader()
	if err != nil {
		return nil, err
	}

	tag := &Tag{Header: header}
	for {
		frame, err := d.ParseFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		tag.frames = append(tag.frames, frame)
	}

	return tag, nil
}

// ReadTag parses one tag from r.
func ReadTag(r io.Reader) (*Tag, error) {
	return NewDecoder(r).Parse()
}
