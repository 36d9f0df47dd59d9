package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesCodeAndMessage(t *testing.T) {
	err := NewError(BadRequest, "nope")
	require.Equal(t, BadRequest, err.Code)
	require.Equal(t, "nope", err.Error())
}

func TestNewRedirectSetsTargetAndMovedPermanently(t *testing.T) {
	err := NewRedirect("/new-location")
	require.Equal(t, MovedPermanently, err.Code)
	require.Equal(t, "/new-location", err.Target)
}

func TestIsCloseConnectionRecognisesSentinelErrors(t *testing.T) {
	require.True(t, IsCloseConnection(ErrCloseConnection))
	require.True(t, IsCloseConnection(ErrClientDisconnected))
	require.False(t, IsCloseConnection(ErrBadRequest))
	require.False(t, IsCloseConnection(errors.New("unrelated")))
}

func TestSentinelErrorsCompareByValue(t *testing.T) {
	require.ErrorIs(t, ErrBodyTooLarge, ErrBodyTooLarge)
	require.NotEqual(t, ErrBadRequest, ErrURITooLong)
}

func TestHasNoBodyCodes(t *testing.T) {
	require.True(t, HasNoBody(NoContent))
	require.True(t, HasNoBody(NotModified))
	require.True(t, HasNoBody(Continue))
	require.False(t, HasNoBody(OK))
}

func TestReasonFallsBackForUnknownCode(t *testing.T) {
	require.Equal(t, Text("Unknown Status Code"), Reason(Code(799)))
	require.Equal(t, Text("OK"), Reason(OK))
}
