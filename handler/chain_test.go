package handler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
)

func newDispatchArgs() (*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) {
	req := httpmsg.NewRequest(0)
	resp := httpmsg.NewResponse()
	return req, resp, exchange.New(1, req, resp)
}

func TestChainTriesHandlersInOrder(t *testing.T) {
	var order []int
	miss := HandlerFunc(func(*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) Result {
		order = append(order, 1)
		return NotHandled
	})
	hit := HandlerFunc(func(*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) Result {
		order = append(order, 2)
		return Handled
	})
	never := HandlerFunc(func(*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) Result {
		order = append(order, 3)
		return Handled
	})

	c := New(miss, hit, never)
	req, resp, ex := newDispatchArgs()
	result, err := c.Dispatch(req, resp, ex)

	require.NoError(t, err)
	require.Equal(t, Handled, result)
	require.Equal(t, []int{1, 2}, order)
}

func TestChainFallsBackToDefaultNotFound(t *testing.T) {
	miss := HandlerFunc(func(*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) Result {
		return NotHandled
	})

	c := New(miss)
	req, resp, ex := newDispatchArgs()
	result, err := c.Dispatch(req, resp, ex)

	require.NoError(t, err)
	require.Equal(t, Handled, result)
	require.Equal(t, status.NotFound, resp.Code)
}

func TestChainUsesCustomNotFound(t *testing.T) {
	custom := HandlerFunc(func(_ *httpmsg.Request, resp *httpmsg.Response, _ *exchange.Exchange) Result {
		resp.SetCode(status.Code(499))
		return Handled
	})

	c := New().WithNotFound(custom)
	req, resp, ex := newDispatchArgs()
	_, err := c.Dispatch(req, resp, ex)

	require.NoError(t, err)
	require.Equal(t, status.Code(499), resp.Code)
}

func TestChainReturnsAsyncAndStops(t *testing.T) {
	calledAfter := false
	claimsAsync := HandlerFunc(func(_ *httpmsg.Request, _ *httpmsg.Response, ex *exchange.Exchange) Result {
		ex.Async()
		return Async
	})
	after := HandlerFunc(func(*httpmsg.Request, *httpmsg.Response, *exchange.Exchange) Result {
		calledAfter = true
		return Handled
	})

	c := New(claimsAsync, after)
	req, resp, ex := newDispatchArgs()
	result, err := c.Dispatch(req, resp, ex)

	require.NoError(t, err)
	require.Equal(t, Async, result)
	require.False(t, calledAfter)
}

func TestChainRejectsNotHandledAfterAsyncClaimed(t *testing.T) {
	illegal := HandlerFunc(func(_ *httpmsg.Request, _ *httpmsg.Response, ex *exchange.Exchange) Result {
		ex.Async()
		return NotHandled
	})

	c := New(illegal)
	req, resp, ex := newDispatchArgs()
	result, err := c.Dispatch(req, resp, ex)

	require.Equal(t, NotHandled, result)
	require.ErrorAs(t, err, &ErrIllegalHandlerState{})
}
