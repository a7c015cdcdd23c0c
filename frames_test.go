package id3vx

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func frameBytes(id string, flags uint16, payload []byte) []byte {
	b := []byte(id)
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = binary.BigEndian.AppendUint16(b, flags)
	return append(b, payload...)
}

func parseOne(t *testing.T, b []byte, opts parseOptions) Frame {
	t.Helper()
	frame, err := parseNextFrame(bytes.NewReader(b), opts)
	require.NoError(t, err)
	require.NotNil(t, frame)
	return frame
}

var v23 = parseOptions{version: Version23}

func TestParseTextFrame(t *testing.T) {
	in := frameBytes("TALB", 0, append([]byte{EncodingLatin1}, "sometext"...))

	frame := parseOne(t, in, v23)

	talb, ok := frame.(TextFrame)
	require.True(t, ok)
	require.Equal(t, "TALB", talb.ID())
	require.Equal(t, Latin1, talb.Codec)
	require.Equal(t, "sometext", talb.Text)
	require.Equal(t, "sometext", talb.Value())
	require.Equal(t, len(in), talb.Size())
}

func TestParseUserTextFrame(t *testing.T) {
	in := frameBytes("TXXX", 0, append([]byte{EncodingLatin1}, "replaygain\x00-6.2 dB"...))

	frame := parseOne(t, in, v23)

	txxx := frame.(UserTextFrame)
	require.Equal(t, "replaygain", txxx.Description)
	require.Equal(t, "-6.2 dB", txxx.Text)
}

func TestParseURLLinkFrame(t *testing.T) {
	in := frameBytes("WOAF", 0, []byte("http://example.com"))

	frame := parseOne(t, in, v23)

	woaf := frame.(URLLinkFrame)
	require.Equal(t, "http://example.com", woaf.URL)
}

func TestParseUserURLLinkFrame(t *testing.T) {
	in := frameBytes("WXXX", 0, append([]byte{EncodingLatin1}, "homepage\x00http://example.com"...))

	frame := parseOne(t, in, v23)

	wxxx := frame.(UserURLLinkFrame)
	require.Equal(t, "homepage", wxxx.Description)
	require.Equal(t, "http://example.com", wxxx.URL)
}

func TestParseCommentFrame(t *testing.T) {
	payload := []byte{EncodingUTF16}
	payload = append(payload, "eng"...)
	payload = append(payload, 0xff, 0xfe, 'd', 0x00, 0x00, 0x00)
	payload = append(payload, 0xff, 0xfe, 'c', 0x00)

	frame := parseOne(t, frameBytes("COMM", 0, payload), v23)

	comm := frame.(CommentFrame)
	require.Equal(t, UTF16, comm.Codec)
	require.Equal(t, "eng", comm.Language)
	require.Equal(t, "d", comm.Description)
	require.Equal(t, "c", comm.Text)
}

func TestParseLyricsFrame(t *testing.T) {
	payload := append([]byte{EncodingLatin1}, "engkaraoke\x00Oh yeah"...)

	frame := parseOne(t, frameBytes("USLT", 0, payload), v23)

	uslt := frame.(LyricsFrame)
	require.Equal(t, "eng", uslt.Language)
	require.Equal(t, "karaoke", uslt.Description)
	require.Equal(t, "Oh yeah", uslt.Lyrics)
}

func TestParseTermsOfUseFrame(t *testing.T) {
	payload := append([]byte{EncodingLatin1}, "engAll rights reserved"...)

	frame := parseOne(t, frameBytes("USER", 0, payload), v23)

	user := frame.(TermsOfUseFrame)
	require.Equal(t, "eng", user.Language)
	require.Equal(t, "All rights reserved", user.Text)
}

func TestParsePrivateFrame(t *testing.T) {
	payload := append([]byte("example.com\x00"), 0xde, 0xad)

	frame := parseOne(t, frameBytes("PRIV", 0, payload), v23)

	priv := frame.(PrivateFrame)
	require.Equal(t, "example.com", priv.Owner)
	require.Equal(t, []byte{0xde, 0xad}, priv.Data)
}

func TestParseUniqueFileIDFrame(t *testing.T) {
	payload := append([]byte("http://musicbrainz.org\x00"), 0x01, 0x02)

	frame := parseOne(t, frameBytes("UFID", 0, payload), v23)

	ufid := frame.(UniqueFileIDFrame)
	require.Equal(t, "http://musicbrainz.org", ufid.Owner)
	require.Equal(t, []byte{0x01, 0x02}, ufid.Identifier)
}

func TestParseObjectFrame(t *testing.T) {
	payload := append([]byte{EncodingLatin1}, "text/plain\x00notes.txt\x00liner notes\x00"...)
	payload = append(payload, 0xca, 0xfe)

	frame := parseOne(t, frameBytes("GEOB", 0, payload), v23)

	geob := frame.(ObjectFrame)
	require.Equal(t, "text/plain", geob.MIMEType)
	require.Equal(t, "notes.txt", geob.Filename)
	require.Equal(t, "liner notes", geob.Description)
	require.Equal(t, []byte{0xca, 0xfe}, geob.Object)
}

func TestParsePlayCounterFrame(t *testing.T) {
	frame := parseOne(t, frameBytes("PCNT", 0, []byte{0x01, 0x00, 0x00, 0x00, 0x05}), v23)

	pcnt := frame.(PlayCounterFrame)
	require.Equal(t, "4294967301", pcnt.Counter.String())
	require.Equal(t, "4294967301", pcnt.Value())
}

func TestParseBinaryFrames(t *testing.T) {
	for _, id := range []string{"MCDI", "NCON", "ZZZZ"} {
		frame := parseOne(t, frameBytes(id, 0, []byte{0x01, 0x02, 0x03}), v23)

		bin, ok := frame.(BinaryFrame)
		require.True(t, ok, id)
		require.Equal(t, []byte{0x01, 0x02, 0x03}, bin.Data)
	}
}

func TestParsePicardSortFrames(t *testing.T) {
	for _, id := range []string{"XSOA", "XSOP", "XSOT"} {
		payload := append([]byte{EncodingLatin1}, "Beatles, The"...)

		frame := parseOne(t, frameBytes(id, 0, payload), v23)

		require.Equal(t, "Beatles, The", frame.(TextFrame).Text, id)
	}
}

func TestParsePictureFrame(t *testing.T) {
	payload := append([]byte{EncodingLatin1}, "image/png\x00"...)
	payload = append(payload, 0x03)
	payload = append(payload, "front\x00"...)
	payload = append(payload, 0x00, 0x00, 0x00, 0xaa, 0xbb)
	in := frameBytes("APIC", 0, payload)

	strict := parseOne(t, in, v23).(PictureFrame)
	require.Equal(t, "image/png", strict.MIMEType)
	require.Equal(t, PictureType(3), strict.PictureType)
	require.Equal(t, "Cover (front)", strict.PictureType.String())
	require.Equal(t, "front", strict.Description)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0xaa, 0xbb}, strict.Data)

	lenient := parseOne(t, in, parseOptions{version: Version23, lenientAPIC: true}).(PictureFrame)
	require.Equal(t, []byte{0xaa, 0xbb}, lenient.Data)
	// The raw payload keeps the stray nulls either way.
	require.Equal(t, in, lenient.Bytes())
}

func TestParsePictureFrameInvalidType(t *testing.T) {
	payload := append([]byte{EncodingLatin1}, "image/png\x00"...)
	payload = append(payload, 0x30, 0x00, 0xaa)

	_, err := parseNextFrame(bytes.NewReader(frameBytes("APIC", 0, payload)), v23)

	require.Error(t, err)
	require.Contains(t, err.Error(), "APIC")
}

func TestParseChapterFrame(t *testing.T) {
	sub := frameBytes("TIT2", 0, append([]byte{EncodingLatin1}, "Intro"...))
	payload := []byte("chp1\x00")
	payload = binary.BigEndian.AppendUint32(payload, 0)
	payload = binary.BigEndian.AppendUint32(payload, 60000)
	payload = binary.BigEndian.AppendUint32(payload, 0)
	payload = binary.BigEndian.AppendUint32(payload, 960000)
	payload = append(payload, sub...)

	frame := parseOne(t, frameBytes("CHAP", 0, payload), v23)

	chap := frame.(ChapterFrame)
	require.Equal(t, "chp1", chap.ElementID)
	require.Equal(t, "0s", chap.Start().String())
	require.Equal(t, "1m0s", chap.End().String())
	require.Equal(t, uint32(960000), chap.EndOffset)

	subFrames, err := chap.SubFrames()
	require.NoError(t, err)
	require.Len(t, subFrames, 1)
	title := subFrames[0].(TextFrame)
	require.Equal(t, "TIT2", title.ID())
	require.Equal(t, "Intro", title.Text)
	require.Equal(t, sub, title.Bytes())
}

func TestFrameBytesRoundTrip(t *testing.T) {
	in := frameBytes("TALB", 0, append([]byte{EncodingLatin1}, "sometext"...))

	frame := parseOne(t, in, v23)

	require.Equal(t, in, frame.Bytes())
}

func TestFrameSizeSynchsafeInV24(t *testing.T) {
	text := strings.Repeat("a", 199)
	payload := append([]byte{EncodingLatin1}, text...)
	in := []byte("TIT2")
	in = binary.BigEndian.AppendUint32(in, Synchsafe(uint32(len(payload))))
	in = append(in, 0, 0)
	in = append(in, payload...)

	frame := parseOne(t, in, parseOptions{version: Version24})

	require.Equal(t, text, frame.(TextFrame).Text)
	require.Equal(t, in, frame.Bytes())
}

func TestFrameFlags(t *testing.T) {
	in := frameBytes("TALB", 1<<15|1<<5, append([]byte{EncodingLatin1}, "a"...))

	flags := parseOne(t, in, v23).Header().Flags

	require.True(t, flags.TagAlterPreservation())
	require.True(t, flags.GroupingIdentity())
	require.False(t, flags.FileAlterPreservation())
	require.False(t, flags.ReadOnly())
	require.False(t, flags.Compression())
	require.False(t, flags.Encryption())
}

func TestParseNextFramePadding(t *testing.T) {
	frame, err := parseNextFrame(bytes.NewReader(make([]byte, 64)), v23)

	require.NoError(t, err)
	require.Nil(t, frame)
}

func TestReadFrameHeaderRejectsInvalidID(t *testing.T) {
	in := frameBytes("ta!b", 0, []byte{0x00, 'a'})

	_, ok := readFrameHeader(bytes.NewReader(in), false)

	require.False(t, ok)
}

func TestParseNextFrameTruncatedPayload(t *testing.T) {
	in := []byte("TALB")
	in = binary.BigEndian.AppendUint32(in, 20)
	in = append(in, 0, 0)
	in = append(in, "short"...)

	_, err := parseNextFrame(bytes.NewReader(in), v23)

	require.Error(t, err)
	require.Contains(t, err.Error(), "TALB")
}

func TestFrameName(t *testing.T) {
	talb := parseOne(t, frameBytes("TALB", 0, append([]byte{EncodingLatin1}, "a"...)), v23)
	require.Equal(t, "Album/Movie/Show title", talb.Name())

	zzzz := parseOne(t, frameBytes("ZZZZ", 0, []byte{0x01}), v23)
	require.Equal(t, "ZZZZ", zzzz.Name())
}
