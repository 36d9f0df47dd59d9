package handler

import (
	"fmt"

	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
)

// RenderError writes the minimal HTML failure page
// for parse/framing/handler errors: `<h1>code reason</h1><p>detail</p>`,
// text/html;charset=utf-8, unless the handler already committed to a
// different Content-Type.
func RenderError(resp *httpmsg.Response, code status.Code, detail string) {
	resp.SetCode(code)
	if !resp.Headers.Has("Content-Type") {
		resp.Header("Content-Type", "text/html;charset=utf-8")
	}
	body := fmt.Sprintf("<h1>%d %s</h1><p>%s</p>", code, status.Reason(code), detail)
	resp.Body = []byte(body)
}

// NotFoundHandler is the Chain's built-in fallback when every configured
// handler returns NotHandled.
type NotFoundHandler struct{}

func (NotFoundHandler) Handle(_ *httpmsg.Request, resp *httpmsg.Response, _ *exchange.Exchange) Result {
	RenderError(resp, status.NotFound, "the requested resource was not found")
	return Handled
}
