package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytesKnownVersions(t *testing.T) {
	require.Equal(t, HTTP10, FromBytes([]byte("HTTP/1.0")))
	require.Equal(t, HTTP11, FromBytes([]byte("HTTP/1.1")))
	require.Equal(t, HTTP2, FromBytes([]byte("HTTP/2.0")))
	require.Equal(t, HTTP2, FromBytes([]byte("HTTP/2")))
	require.Equal(t, Unknown, FromBytes([]byte("HTTP/9.9")))
}

func TestToBytesRoundTripsFromBytes(t *testing.T) {
	for _, p := range []Protocol{HTTP10, HTTP11, HTTP2} {
		require.Equal(t, p, FromBytes(ToBytes(p)))
	}
	require.Nil(t, ToBytes(Unknown))
}

func TestString(t *testing.T) {
	require.Equal(t, "HTTP/1.1", HTTP11.String())
	require.Equal(t, "unknown", Unknown.String())
}

func TestH1SetContainsBothLegacyVersions(t *testing.T) {
	require.NotZero(t, H1&HTTP10)
	require.NotZero(t, H1&HTTP11)
	require.Zero(t, H1&HTTP2)
}

func TestChooseUpgradeNeverAcceptsCleartextH2C(t *testing.T) {
	require.Equal(t, Unknown, ChooseUpgrade("h2c"))
	require.Equal(t, Unknown, ChooseUpgrade("HTTP/2.0"))
}
