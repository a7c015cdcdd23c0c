package id3vx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"time"
)

const FrameHeaderSize = 10

// FrameFlags is the 2-byte flag field of an ID3v2.3 frame header.
type FrameFlags uint16

func (f FrameFlags) TagAlterPreservation() bool  { return f&(1<<15) > 0 }
func (f FrameFlags) FileAlterPreservation() bool { return f&(1<<14) > 0 }
func (f FrameFlags) ReadOnly() bool              { return f&(1<<13) > 0 }
func (f FrameFlags) Compression() bool           { return f&(1<<7) > 0 }
func (f FrameFlags) Encryption() bool            { return f&(1<<6) > 0 }
func (f FrameFlags) GroupingIdentity() bool      { return f&(1<<5) > 0 }

// FrameHeader is the 10-byte header preceding every frame. Size is the
// payload size excluding the header itself.
type FrameHeader struct {
	ID    string
	Size  uint32
	Flags FrameFlags
}

// readFrameHeader reads the next frame header from r. A zero size
// signals padding and a malformed or truncated header the end of
// readable frames; both yield ok == false rather than an error.
// Frame sizes are stored synchsafe from v2.4 on.
func readFrameHeader(r *bytes.Reader, synchsafeSize bool) (header FrameHeader, ok bool) {
	var b [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return FrameHeader{}, false
	}
	for _, c := range b[:4] {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return FrameHeader{}, false
		}
	}
	size := binary.BigEndian.Uint32(b[4:8])
	if synchsafeSize {
		size = Unsynchsafe(size)
	}
	if size == 0 {
		return FrameHeader{}, false
	}
	header = FrameHeader{
		ID:    string(b[:4]),
		Size:  size,
		Flags: FrameFlags(binary.BigEndian.Uint16(b[8:10])),
	}
	return header, true
}

func (h FrameHeader) appendBytes(dst []byte, synchsafeSize bool) []byte {
	dst = append(dst, h.ID...)
	size := h.Size
	if synchsafeSize {
		size = Synchsafe(size)
	}
	dst = binary.BigEndian.AppendUint32(dst, size)
	return binary.BigEndian.AppendUint16(dst, uint16(h.Flags))
}

// A Frame is one typed record of a tag, identified by its 4-character
// id. Concrete types expose the decoded fields; Bytes reproduces the
// frame byte-exactly, header included.
type Frame interface {
	ID() string
	Name() string
	Header() FrameHeader
	Size() int
	Value() string
	Bytes() []byte
}

// frameBase carries what every variant shares: the header, the raw
// payload it exclusively owns, and the tag version that decides the
// header's size encoding.
type frameBase struct {
	header FrameHeader
	raw    []byte
	ver    Version
}

func (f frameBase) Header() FrameHeader { return f.header }

func (f frameBase) ID() string { return f.header.ID }

// Name returns the display name of the frame, defaulting to the id for
// unregistered extensions.
func (f frameBase) Name() string {
	if name, ok := FrameNames[f.header.ID]; ok {
		return name
	}
	return f.header.ID
}

// Size is the overall frame size in bytes, header included.
func (f frameBase) Size() int { return FrameHeaderSize + len(f.raw) }

func (f frameBase) Bytes() []byte {
	out := f.header.appendBytes(make([]byte, 0, f.Size()), f.ver.synchsafeFrames())
	return append(out, f.raw...)
}

func (f frameBase) fieldValues(fields Fields) (map[string]any, error) {
	return fields.Read(bytes.NewReader(f.raw), NewContext())
}

// parseOptions travels with a single tag parse and into lazy sub-frame
// parses.
type parseOptions struct {
	version     Version
	lenientAPIC bool
}

type frameParser func(frameBase, parseOptions) (Frame, error)

// frameParsers maps frame ids to their concrete variant. Ids not
// listed here fall back to the T*/W* prefix families and finally to
// the opaque BinaryFrame.
var frameParsers = map[string]frameParser{
	"TXXX": parseUserTextFrame,
	"WXXX": parseUserURLLinkFrame,
	"COMM": parseCommentFrame,
	"USLT": parseLyricsFrame,
	"USER": parseTermsOfUseFrame,
	"APIC": parsePictureFrame,
	"GEOB": parseObjectFrame,
	"PRIV": parsePrivateFrame,
	"UFID": parseUniqueFileIDFrame,
	"PCNT": parsePlayCounterFrame,
	"CHAP": parseChapterFrame,
	"MCDI": parseBinaryFrame,
	"NCON": parseBinaryFrame,
	// MusicBrainz Picard sort-order extensions, text shaped.
	"XSOA": parseTextFrame,
	"XSOP": parseTextFrame,
	"XSOT": parseTextFrame,
}

func parserFor(id string) frameParser {
	if p, ok := frameParsers[id]; ok {
		return p
	}
	switch id[0] {
	case 'T':
		return parseTextFrame
	case 'W':
		return parseURLLinkFrame
	}
	Logging.Println("no parser for frame", id, "- treating as binary")
	return parseBinaryFrame
}

// parseNextFrame reads one frame from r. It returns (nil, nil) when it
// hits padding or runs out of readable headers.
func parseNextFrame(r *bytes.Reader, opts parseOptions) (Frame, error) {
	header, ok := readFrameHeader(r, opts.version.synchsafeFrames())
	if !ok {
		return nil, nil
	}
	raw := make([]byte, header.Size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("frame %s: truncated payload: %w", header.ID, err)
	}
	frame, err := parserFor(header.ID)(frameBase{header, raw, opts.version}, opts)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", header.ID, err)
	}
	return frame, nil
}

// TextFrame is any text information frame (T000-TZZZ except TXXX).
type TextFrame struct {
	frameBase
	Codec Codec
	Text  string
}

var textFrameFields = Fields{
	CodecField(),
	EncodedTextField("text"),
}

func parseTextFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(textFrameFields)
	if err != nil {
		return nil, err
	}
	return TextFrame{base, v["codec"].(Codec), v["text"].(string)}, nil
}

func (f TextFrame) Value() string { return f.Text }

// UserTextFrame is a user defined text frame (TXXX).
type UserTextFrame struct {
	frameBase
	Codec       Codec
	Description string
	Text        string
}

var userTextFrameFields = Fields{
	CodecField(),
	EncodedTextField("description"),
	EncodedTextField("text"),
}

func parseUserTextFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(userTextFrameFields)
	if err != nil {
		return nil, err
	}
	return UserTextFrame{base, v["codec"].(Codec), v["description"].(string), v["text"].(string)}, nil
}

func (f UserTextFrame) Value() string { return f.Text }

// URLLinkFrame is any URL link frame (W000-WZZZ except WXXX). URLs are
// always Latin-1, there is no encoding byte.
type URLLinkFrame struct {
	frameBase
	URL string
}

var urlLinkFrameFields = Fields{
	TextField("url"),
}

func parseURLLinkFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(urlLinkFrameFields)
	if err != nil {
		return nil, err
	}
	return URLLinkFrame{base, v["url"].(string)}, nil
}

func (f URLLinkFrame) Value() string { return f.URL }

// UserURLLinkFrame is a user defined URL frame (WXXX). Only the
// description is encoding-dependent.
type UserURLLinkFrame struct {
	frameBase
	Codec       Codec
	Description string
	URL         string
}

var userURLLinkFrameFields = Fields{
	CodecField(),
	EncodedTextField("description"),
	TextField("url"),
}

func parseUserURLLinkFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(userURLLinkFrameFields)
	if err != nil {
		return nil, err
	}
	return UserURLLinkFrame{base, v["codec"].(Codec), v["description"].(string), v["url"].(string)}, nil
}

func (f UserURLLinkFrame) Value() string { return f.URL }

// CommentFrame is a comment (COMM).
type CommentFrame struct {
	frameBase
	Codec       Codec
	Language    string
	Description string
	Text        string
}

var commentFrameFields = Fields{
	CodecField(),
	FixedLengthTextField("language", 3),
	EncodedTextField("description"),
	EncodedTextField("comment"),
}

func parseCommentFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(commentFrameFields)
	if err != nil {
		return nil, err
	}
	return CommentFrame{base, v["codec"].(Codec), v["language"].(string), v["description"].(string), v["comment"].(string)}, nil
}

func (f CommentFrame) Value() string { return f.Text }

// LyricsFrame is an unsynchronised lyrics transcription (USLT), shaped
// like a comment.
type LyricsFrame struct {
	frameBase
	Codec       Codec
	Language    string
	Description string
	Lyrics      string
}

var lyricsFrameFields = Fields{
	CodecField(),
	FixedLengthTextField("language", 3),
	EncodedTextField("description"),
	EncodedTextField("lyrics"),
}

func parseLyricsFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(lyricsFrameFields)
	if err != nil {
		return nil, err
	}
	return LyricsFrame{base, v["codec"].(Codec), v["language"].(string), v["description"].(string), v["lyrics"].(string)}, nil
}

func (f LyricsFrame) Value() string { return f.Lyrics }

// TermsOfUseFrame is a terms of use frame (USER).
type TermsOfUseFrame struct {
	frameBase
	Codec    Codec
	Language string
	Text     string
}

var termsOfUseFrameFields = Fields{
	CodecField(),
	FixedLengthTextField("language", 3),
	EncodedTextField("text"),
}

func parseTermsOfUseFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(termsOfUseFrameFields)
	if err != nil {
		return nil, err
	}
	return TermsOfUseFrame{base, v["codec"].(Codec), v["language"].(string), v["text"].(string)}, nil
}

func (f TermsOfUseFrame) Value() string { return f.Text }

// PictureType classifies an attached picture (APIC).
type PictureType byte

func (p PictureType) String() string {
	if int(p) >= len(PictureTypes) {
		return ""
	}
	return PictureTypes[p]
}

func validPictureType(v uint64) error {
	if v >= uint64(len(PictureTypes)) {
		return fmt.Errorf("id3vx: unknown picture type %#x", v)
	}
	return nil
}

// PictureFrame is an attached picture (APIC).
type PictureFrame struct {
	frameBase
	Codec       Codec
	MIMEType    string
	PictureType PictureType
	Description string
	Data        []byte
}

var pictureFrameFields = Fields{
	CodecField(),
	TextField("mime_type"),
	EnumField("picture_type", 1, validPictureType),
	EncodedTextField("description"),
	BinaryField("data", -1),
}

func parsePictureFrame(base frameBase, opts parseOptions) (Frame, error) {
	v, err := base.fieldValues(pictureFrameFields)
	if err != nil {
		return nil, err
	}
	data := v["data"].([]byte)
	if opts.lenientAPIC {
		// Some producers pad the picture with up to three stray null
		// bytes. The raw payload keeps them, so round-tripping is
		// unaffected.
		for i := 0; i < 3 && len(data) > 0 && data[0] == 0; i++ {
			data = data[1:]
			Logging.Println("APIC: stripped stray null byte before picture data")
		}
	}
	return PictureFrame{
		frameBase:   base,
		Codec:       v["codec"].(Codec),
		MIMEType:    v["mime_type"].(string),
		PictureType: PictureType(v["picture_type"].(uint64)),
		Description: v["description"].(string),
		Data:        data,
	}, nil
}

func (f PictureFrame) Value() string { return f.MIMEType }

// ObjectFrame is a general encapsulated object (GEOB).
type ObjectFrame struct {
	frameBase
	Codec       Codec
	MIMEType    string
	Filename    string
	Description string
	Object      []byte
}

var objectFrameFields = Fields{
	CodecField(),
	TextField("mime_type"),
	EncodedTextField("filename"),
	EncodedTextField("description"),
	BinaryField("obj", -1),
}

func parseObjectFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(objectFrameFields)
	if err != nil {
		return nil, err
	}
	return ObjectFrame{
		frameBase:   base,
		Codec:       v["codec"].(Codec),
		MIMEType:    v["mime_type"].(string),
		Filename:    v["filename"].(string),
		Description: v["description"].(string),
		Object:      v["obj"].([]byte),
	}, nil
}

func (f ObjectFrame) Value() string { return f.Filename }

// PrivateFrame is a private data frame (PRIV).
type PrivateFrame struct {
	frameBase
	Owner string
	Data  []byte
}

var privateFrameFields = Fields{
	TextField("owner"),
	BinaryField("data", -1),
}

func parsePrivateFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(privateFrameFields)
	if err != nil {
		return nil, err
	}
	return PrivateFrame{base, v["owner"].(string), v["data"].([]byte)}, nil
}

func (f PrivateFrame) Value() string { return f.Owner }

// UniqueFileIDFrame is a unique file identifier (UFID). Same wire
// layout as PRIV.
type UniqueFileIDFrame struct {
	frameBase
	Owner      string
	Identifier []byte
}

func parseUniqueFileIDFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(privateFrameFields)
	if err != nil {
		return nil, err
	}
	return UniqueFileIDFrame{base, v["owner"].(string), v["data"].([]byte)}, nil
}

func (f UniqueFileIDFrame) Value() string { return f.Owner }

// PlayCounterFrame is a play counter (PCNT). The counter is four bytes
// on the wire but grows beyond that for very popular songs.
type PlayCounterFrame struct {
	frameBase
	Counter *big.Int
}

var playCounterFrameFields = Fields{
	GrowingIntegerField("counter"),
}

func parsePlayCounterFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(playCounterFrameFields)
	if err != nil {
		return nil, err
	}
	return PlayCounterFrame{base, v["counter"].(*big.Int)}, nil
}

func (f PlayCounterFrame) Value() string { return f.Counter.String() }

// ChapterFrame is a chapter (CHAP) from the ID3v2 chapter addendum.
// Times are in milliseconds, offsets in bytes from the start of the
// file.
type ChapterFrame struct {
	frameBase
	ElementID   string
	StartTime   uint32
	EndTime     uint32
	StartOffset uint32
	EndOffset   uint32

	subFrames []byte
	opts      parseOptions
}

var chapterFrameFields = Fields{
	TextField("element_id"),
	IntegerField("start_time", 4),
	IntegerField("end_time", 4),
	IntegerField("start_offset", 4),
	IntegerField("end_offset", 4),
	BinaryField("sub_frames", -1),
}

func parseChapterFrame(base frameBase, opts parseOptions) (Frame, error) {
	v, err := base.fieldValues(chapterFrameFields)
	if err != nil {
		return nil, err
	}
	return ChapterFrame{
		frameBase:   base,
		ElementID:   v["element_id"].(string),
		StartTime:   uint32(v["start_time"].(uint64)),
		EndTime:     uint32(v["end_time"].(uint64)),
		StartOffset: uint32(v["start_offset"].(uint64)),
		EndOffset:   uint32(v["end_offset"].(uint64)),
		subFrames:   v["sub_frames"].([]byte),
		opts:        opts,
	}, nil
}

func (f ChapterFrame) Start() time.Duration { return time.Duration(f.StartTime) * time.Millisecond }

func (f ChapterFrame) End() time.Duration { return time.Duration(f.EndTime) * time.Millisecond }

// SubFrames re-parses the up to two frames (TIT2, TIT3) embedded in
// the chapter's trailing bytes. Each sub-frame is an independent Frame
// over its own slice.
func (f ChapterFrame) SubFrames() ([]Frame, error) {
	r := bytes.NewReader(f.subFrames)
	var frames []Frame
	for len(frames) < 2 {
		frame, err := parseNextFrame(r, f.opts)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			break
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (f ChapterFrame) Value() string { return f.ElementID }

// BinaryFrame is the fallback for ids without a registered variant and
// for frames that are opaque by design (MCDI, NCON).
type BinaryFrame struct {
	frameBase
	Data []byte
}

var binaryFrameFields = Fields{
	BinaryField("data", -1),
}

func parseBinaryFrame(base frameBase, _ parseOptions) (Frame, error) {
	v, err := base.fieldValues(binaryFrameFields)
	if err != nil {
		return nil, err
	}
	return BinaryFrame{base, v["data"].([]byte)}, nil
}

func (f BinaryFrame) Value() string { return string(f.Data) }

// FrameNames maps the frame ids declared by ID3v2.3 to display names.
var FrameNames = map[string]string{
	"AENC": "Audio encryption",
	"APIC": "Attached picture",
	"COMM": "Comments",
	"COMR": "Commercial frame",
	"ENCR": "Encryption method registration",
	"EQUA": "Equalization",
	"ETCO": "Event timing codes",
	"GEOB": "General encapsulated object",
	"GRID": "Group identification registration",
	"IPLS": "Involved people list",
	"LINK": "Linked information",
	"MCDI": "Music CD identifier",
	"MLLT": "MPEG location lookup table",
	"OWNE": "Ownership frame",
	"PRIV": "Private frame",
	"PCNT": "Play counter",
	"POPM": "Popularimeter",
	"POSS": "Position synchronisation frame",
	"RBUF": "Recommended buffer size",
	"RVAD": "Relative volume adjustment",
	"RVRB": "Reverb",
	"SYLT": "Synchronized lyric/text",
	"SYTC": "Synchronized tempo codes",
	"TALB": "Album/Movie/Show title",
	"TBPM": "BPM (beats per minute)",
	"TCOM": "Composer",
	"TCON": "Content type",
	"TCOP": "Copyright message",
	"TDAT": "Date",
	"TDLY": "Playlist delay",
	"TENC": "Encoded by",
	"TEXT": "Lyricist/Text writer",
	"TFLT": "File type",
	"TIME": "Time",
	"TIT1": "Content group description",
	"TIT2": "Title/songname/content description",
	"TIT3": "Subtitle/Description refinement",
	"TKEY": "Initial key",
	"TLAN": "Language(s)",
	"TLEN": "Length",
	"TMED": "Media type",
	"TOAL": "Original album/movie/show title",
	"TOFN": "Original filename",
	"TOLY": "Original lyricist(s)/text writer(s)",
	"TOPE": "Original artist(s)/performer(s)",
	"TORY": "Original release year",
	"TOWN": "File owner/licensee",
	"TPE1": "Lead performer(s)/Soloist(s)",
	"TPE2": "Band/orchestra/accompaniment",
	"TPE3": "Conductor/performer refinement",
	"TPE4": "Interpreted, remixed, or otherwise modified by",
	"TPOS": "Part of a set",
	"TPUB": "Publisher",
	"TRCK": "Track number/Position in set",
	"TRDA": "Recording dates",
	"TRSN": "Internet radio station name",
	"TRSO": "Internet radio station owner",
	"TSIZ": "Size",
	"TSRC": "ISRC (international standard recording code)",
	"TSSE": "Software/Hardware and settings used for encoding",
	"TYER": "Year",
	"TXXX": "User defined text information frame",
	"UFID": "Unique file identifier",
	"USER": "Terms of use",
	// sic, the ID3v2.3 standard itself misspells "Unsynchronized"
	"USLT": "Unsychronized lyric/text transcription",
	"WCOM": "Commercial information",
	"WCOP": "Copyright/Legal information",
	"WOAF": "Official audio file webpage",
	"WOAR": "Official artist/performer webpage",
	"WOAS": "Official audio source webpage",
	"WORS": "Official internet radio station homepage",
	"WPAY": "Payment",
	"WPUB": "Publishers official webpage",
	"WXXX": "User defined URL link frame",
}

// PictureTypes lists the 21 picture classifications of the APIC frame,
// indexed by wire value.
var PictureTypes = []string{
	"Other",
	"32x32 pixels 'file icon' (PNG only)",
	"Other file icon",
	"Cover (front)",
	"Cover (back)",
	"Leaflet page",
	"Media (e.g. label side of CD)",
	"Lead artist/lead performer/soloist",
	"Artist/performer",
	"Conductor",
	"Band/Orchestra",
	"Composer",
	"Lyricist/text writer",
	"Recording Location",
	"During recording",
	"During performance",
	"Movie/video screen capture",
	"A bright coloured fish",
	"Illustration",
	"Band/artist logotype",
	"Publisher/Studio logotype",
}
