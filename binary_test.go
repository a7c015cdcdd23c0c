package id3vx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSynchsafe(t *testing.T) {
	require.Equal(t, uint32(0x17f), Synchsafe(0xff))
	require.Equal(t, uint32(0x7f7f7f7f), Synchsafe(0xfffffff))
	require.Equal(t, uint32(0), Synchsafe(0))
}

func TestUnsynchsafe(t *testing.T) {
	require.Equal(t, uint32(257), Unsynchsafe(0x0201))
	require.Equal(t, uint32(0xfffffff), Unsynchsafe(0x7f7f7f7f))
	require.Equal(t, uint32(0), Unsynchsafe(0))
}

func TestSynchsafeRoundTrip(t *testing.T) {
	for n := uint32(0); n < 1<<28; n += 4099 {
		require.Equal(t, n, Unsynchsafe(Synchsafe(n)))
	}
	require.Equal(t, uint32(1<<28-1), Unsynchsafe(Synchsafe(1<<28-1)))
}

func TestSynchsafeHighBitsAlwaysZero(t *testing.T) {
	for n := uint32(0); n < 1<<28; n += 65537 {
		require.Zero(t, Synchsafe(n)&0x80808080)
	}
}
