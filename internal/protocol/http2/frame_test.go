package http2

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameHeaderRoundTrip(t *testing.T) {
	fh := FrameHeader{
		Length:   1234,
		Type:     FrameHeaders,
		Flags:    FlagEndHeaders | FlagEndStream,
		StreamID: 7,
	}

	buf := WriteFrameHeader(nil, fh)
	require.Len(t, buf, 9)

	got, err := ReadFrameHeader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, fh, got)
}

func TestReadFrameHeaderClearsReservedBit(t *testing.T) {
	buf := WriteFrameHeader(nil, FrameHeader{StreamID: 1})
	buf[5] |= 0x80 // set the reserved top bit

	got, err := ReadFrameHeader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, uint32(1), got.StreamID)
}

func TestFlagsHas(t *testing.T) {
	f := FlagEndHeaders | FlagPadded
	require.True(t, f.Has(FlagEndHeaders))
	require.True(t, f.Has(FlagPadded))
	require.False(t, f.Has(FlagPriority))
}

func TestReadFrameHeaderErrorsOnShortInput(t *testing.T) {
	_, err := ReadFrameHeader(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}
