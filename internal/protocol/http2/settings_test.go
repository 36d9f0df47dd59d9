package http2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsMatchRFCDefaults(t *testing.T) {
	s := DefaultSettings()
	require.Equal(t, uint32(4096), s.HeaderTableSize)
	require.True(t, s.EnablePush)
	require.Equal(t, uint32(65535), s.InitialWindowSize)
	require.Equal(t, uint32(16384), s.MaxFrameSize)
}

func TestApplyKnownSetting(t *testing.T) {
	s := DefaultSettings()
	s.Apply(SettingMaxConcurrentStreams, 100)
	require.Equal(t, uint32(100), s.MaxConcurrentStreams)

	s.Apply(SettingEnablePush, 0)
	require.False(t, s.EnablePush)
}

func TestApplyUnknownSettingIsIgnored(t *testing.T) {
	s := DefaultSettings()
	before := s
	s.Apply(SettingID(0xff), 42)
	require.Equal(t, before, s)
}

func TestDecodeSettingsPayloadAppliesEveryEntry(t *testing.T) {
	var payload []byte
	payload = encodeSettingsPayload(payload, SettingMaxConcurrentStreams, 50)
	payload = encodeSettingsPayload(payload, SettingInitialWindowSize, 32768)

	var s Settings
	ok := decodeSettingsPayload(payload, &s)
	require.True(t, ok)
	require.Equal(t, uint32(50), s.MaxConcurrentStreams)
	require.Equal(t, uint32(32768), s.InitialWindowSize)
}

func TestDecodeSettingsPayloadRejectsMisalignedLength(t *testing.T) {
	var s Settings
	ok := decodeSettingsPayload([]byte{1, 2, 3}, &s)
	require.False(t, ok)
}
