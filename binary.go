package id3vx

// Synchsafe redistributes the bits of a 28-bit integer over four bytes
// so that the most significant bit of every byte is zero. Sizes are
// stored this way in ID3v2 headers to avoid false MPEG sync markers.
func Synchsafe(n uint32) uint32 {
	return (n & 0x7f) |
		(n&0x3f80)<<1 |
		(n&0x1fc000)<<2 |
		(n&0xfe00000)<<3
}

// Unsynchsafe is the exact inverse of Synchsafe: it strips the high bit
// of each byte and packs the remaining 7-bit groups back together.
func Unsynchsafe(n uint32) uint32 {
	return (n & 0x7f) |
		(n&0x7f00)>>1 |
		(n&0x7f0000)>>2 |
		(n&0x7f000000)>>3
}
