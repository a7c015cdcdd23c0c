/*
Package id3vx reads and writes ID3v2.3 metadata tags embedded at the
start of MP3 files.

Reading

A tag is read in one bounded pass from a stream owned by the caller:

	tag, err := id3vx.ReadTag(f)

Frames come back in wire order as typed values; type-switch on the
concrete frame types (TextFrame, CommentFrame, PictureFrame, ...) or
use the convenience accessors on Tag. Tag.Bytes reproduces the tag
byte for byte, padding included.

Supported versions

Tags are parsed per ID3v2.3; the synchsafe frame sizes of v2.4 are
handled on read. ID3v2.2 (3-character frame ids) and unsynchronised
tags are rejected with UnsupportedError.
*/
package id3vx
