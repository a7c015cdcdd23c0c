package id3vx

import (
	"fmt"
	"io"
)

// Padding is the number of padding bytes appended when a tag outgrows
// its declared size and the header has to be rewritten.
var Padding = 1024

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) WriteFrame(f Frame) error {
	_, err := e.w.Write(f.Bytes())
	return err
}

// Bytes serializes the tag: header, frames back to back, then zero
// padding up to the declared tag size. A tag that was read and not
// modified reproduces its input byte for byte. When the frames no
// longer fit the declared size, the size grows to fit plus Padding.
func (t *Tag) Bytes() []byte {
	var body []byte
	for _, f := range t.frames {
		body = append(body, f.Bytes()...)
	}

	size := t.Header.Size
	if uint32(len(body)) > size {
		size = uint32(len(body) + Padding)
	}

	out := t.Header.appendBytes(make([]byte, 0, TagHeaderSize+int(size)), size)
	out = append(out, body...)
	return append(out, make([]byte, int(size)-len(body))...)
}

// Encode writes the serialized tag to w.
func (t *Tag) Encode(w io.Writer) error {
	_, err := w.Write(t.Bytes())
	return err
}

// newFrame runs a variant's pipeline in the write direction and wraps
// the result in a frame header. The version decides how the header's
// size field is encoded when the frame is serialized.
func newFrame(id string, ver Version, fields Fields, values map[string]any) (frameBase, error) {
	raw, err := fields.Append(nil, values, NewContext())
	if err != nil {
		return frameBase{}, fmt.Errorf("frame %s: %w", id, err)
	}
	header := FrameHeader{ID: id, Size: uint32(len(raw))}
	return frameBase{header: header, raw: raw, ver: ver}, nil
}

// NewTextFrame builds a text information frame with a v2.3 header.
func NewTextFrame(id, text string, codec Codec) (TextFrame, error) {
	return newTextFrame(id, Version23, text, codec)
}

func newTextFrame(id string, ver Version, text string, codec Codec) (TextFrame, error) {
	base, err := newFrame(id, ver, textFrameFields, map[string]any{
		"codec": codec,
		"text":  text,
	})
	if err != nil {
		return TextFrame{}, err
	}
	return TextFrame{base, codec, text}, nil
}

// NewCommentFrame builds a COMM frame. The language is a 3-character
// ISO-639-2 code.
func NewCommentFrame(language, description, text string, codec Codec) (CommentFrame, error) {
	base, err := newFrame("COMM", Version23, commentFrameFields, map[string]any{
		"codec":       codec,
		"language":    language,
		"description": description,
		"comment":     text,
	})
	if err != nil {
		return CommentFrame{}, err
	}
	return CommentFrame{base, codec, language, description, text}, nil
}

// SetTextFrame replaces the first text frame with the given id, or
// appends one. The new frame carries the tag's version, so a tag read
// as v2.4 keeps serializing its frame sizes synchsafe.
func (t *Tag) SetTextFrame(id, text string, codec Codec) error {
	ver := t.Header.Version
	if ver == 0 {
		ver = Version23
	}
	frame, err := newTextFrame(id, ver, text, codec)
	if err != nil {
		return err
	}
	for i, f := range t.frames {
		if tf, ok := f.(TextFrame); ok && tf.ID() == id {
			t.frames[i] = frame
			return nil
		}
	}
	t.frames = append(t.frames, frame)
	return nil
}
