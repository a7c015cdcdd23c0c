package id3vx

import (
	"fmt"
	"log"
)

const TagHeaderSize = 10

// Magic is the 3-byte marker every ID3v2 tag starts with.
var Magic = [3]byte{'I', 'D', '3'}

// Enables logging if set to true.
var Logging LogFlag

type LogFlag bool

func (l LogFlag) Println(args ...any) {
	if l {
		log.Println(args...)
	}
}

// Version is the major and minor ID3v2 version of a tag, major in the
// high byte.
type Version int16

const (
	Version23 Version = 3 << 8
	Version24 Version = 4 << 8
)

func (v Version) Major() int { return int(v >> 8) }

func (v Version) String() string {
	return fmt.Sprintf("ID3v2.%d.%d", v>>8, v&0xff)
}

// synchsafeFrames reports whether frame sizes are synchsafe-encoded in
// this version. Tag sizes are synchsafe in every version.
func (v Version) synchsafeFrames() bool { return v.Major() >= 4 }

// HeaderFlags is the 1-byte flag field of the tag header.
type HeaderFlags byte

func (f HeaderFlags) Unsynchronisation() bool { return f&(1<<7) > 0 }
func (f HeaderFlags) ExtendedHeader() bool    { return f&(1<<6) > 0 }
func (f HeaderFlags) Experimental() bool      { return f&(1<<5) > 0 }
func (f HeaderFlags) FooterPresent() bool     { return f&(1<<4) > 0 }

func validHeaderFlags(v uint64) error {
	if v&0x0f != 0 {
		return fmt.Errorf("id3vx: undefined tag header flags %#x", v)
	}
	return nil
}

// NoTagError reports that a stream does not start with an ID3v2 tag.
// It is fatal for the file; there is nothing to retry.
type NoTagError struct {
	Magic [3]byte
}

func (e NoTagError) Error() string {
	return fmt.Sprintf("not an ID3v2 header: %q", e.Magic)
}

// UnsupportedError reports a tag that is well-formed but uses a
// version or feature this package declines to process.
type UnsupportedError struct {
	Feature string
}

func (e UnsupportedError) Error() string {
	return "unsupported: " + e.Feature
}

// TagHeader is the 10-byte header at the very start of a tagged file.
// Size is the payload size in bytes, excluding the header itself.
// Constructed once per tag read and immutable afterwards.
type TagHeader struct {
	Version Version
	Flags   HeaderFlags
	Size    uint32
}

func (h TagHeader) appendBytes(dst []byte, size uint32) []byte {
	dst = append(dst, Magic[:]...)
	dst = append(dst, byte(h.Version>>8), byte(h.Version&0xff), byte(h.Flags))
	return appendUint(dst, uint64(Synchsafe(size)), 4)
}

// Bytes serializes the header.
func (h TagHeader) Bytes() []byte {
	return h.appendBytes(make([]byte, 0, TagHeaderSize), h.Size)
}

// Comment is the decoded content of a COMM frame.
type Comment struct {
	Language    string
	Description string
	Text        string
}

// Tag is a whole ID3v2 tag: the header and the ordered frame
// collection.
type Tag struct {
	Header TagHeader

	frames []Frame
}

// Frames returns the tag's frames in wire order.
func (t *Tag) Frames() []Frame { return t.frames }

// Size is the overall tag size in bytes, header included.
func (t *Tag) Size() int { return TagHeaderSize + int(t.Header.Size) }

// TextValue returns the text of the first text frame with the given
// id, or "" when the tag has none.
func (t *Tag) TextValue(id string) string {
	for _, f := range t.frames {
		if tf, ok := f.(TextFrame); ok && tf.ID() == id {
			return tf.Text
		}
	}
	return ""
}

// UserTextValue returns the text of the TXXX frame with the given
// description, or "" when the tag has none.
func (t *Tag) UserTextValue(description string) string {
	for _, f := range t.frames {
		if uf, ok := f.(UserTextFrame); ok && uf.Description == description {
			return uf.Text
		}
	}
	return ""
}

func (t *Tag) Album() string { return t.TextValue("TALB") }

func (t *Tag) Artist() string { return t.TextValue("TPE1") }

func (t *Tag) Title() string { return t.TextValue("TIT2") }

func (t *Tag) Comments() []Comment {
	var comments []Comment
	for _, f := range t.frames {
		if cf, ok := f.(CommentFrame); ok {
			comments = append(comments, Comment{cf.Language, cf.Description, cf.Text})
		}
	}
	return comments
}

// Chapters returns the tag's CHAP frames in wire order.
func (t *Tag) Chapters() []ChapterFrame {
	var chapters []ChapterFrame
	for _, f := range t.frames {
		if cf, ok := f.(ChapterFrame); ok {
			chapters = append(chapters, cf)
		}
	}
	return chapters
}
