// Package http1 implements the HTTP/1.1 message parser and response writer
// of the wire protocol engine: a byte-at-a-time incremental state machine
// over possibly-fragmented HTTP/1.1 streams.
package http1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/indigo-web/utils/uf"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
	"github.com/webforge/httpcore/httpproto/proto"
	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/internal/buffer"
)

// state enumerates exactly the parser states needed for the
// request-line and header-block portion of the message. Chunked body
// framing is decoded by the BodyReader in body.go once the body starts.
type state uint8

const (
	sMethod state = iota + 1
	sTarget
	sTargetDecode1
	sTargetDecode2
	sQueryKey
	sQueryValue
	sVersion
	sHeaderName
	sContentLength
	sContentLengthCR
	sHeaderValue
	sHeaderValueCRLFCR
)

// Parser is the H1 request-line + header-block state machine. Body framing is resolved here (bodyMode()) but body bytes
// themselves are handed off to a BodyReader once headers complete.
type Parser struct {
	state               state
	metTransferEncoding bool
	headersNumber       int
	contentLength       int64
	urlEncodedChar      byte
	queryKey            string
	headerKey           string

	cfg *config.Config

	req *httpmsg.Request

	// requestLine accumulates the target/query across fragmented reads.
	requestLine *buffer.Buffer
	// headers accumulates a header name or value across fragmented reads.
	headers *buffer.Buffer
}

// NewParser builds a Parser writing into req, using requestLine/headers as
// its scratch accumulation buffers (sized per cfg.URI.MaxSize /
// cfg.Headers.MaxSize).
func NewParser(cfg *config.Config, req *httpmsg.Request, requestLine, headers *buffer.Buffer) *Parser {
	return &Parser{
		cfg:         cfg,
		state:       sMethod,
		req:         req,
		requestLine: requestLine,
		headers:     headers,
	}
}

// Parse consumes data, advancing the state machine. done reports whether
// the header block completed (request ready for body/handler dispatch);
// extra is the unconsumed remainder of data past the header terminator,
// to be fed back as the start of the body. On err, parsing stops at the
// offending byte rather than resynchronising to the next request, so the
// caller writes a response and closes the connection.
func (p *Parser) Parse(data []byte) (done bool, extra []byte, err error) {
	req := p.req
	requestLine := p.requestLine
	headers := p.headers

	switch p.state {
	case sMethod:
		goto method
	case sTarget:
		goto target
	case sTargetDecode1:
		goto targetDecode1
	case sTargetDecode2:
		goto targetDecode2
	case sQueryKey:
		goto queryKey
	case sQueryValue:
		goto queryValue
	case sVersion:
		goto version
	case sHeaderName:
		goto headerName
	case sContentLength:
		goto contentLength
	case sContentLengthCR:
		goto contentLengthCR
	case sHeaderValue:
		goto headerValue
	case sHeaderValueCRLFCR:
		goto headerValueCRLFCR
	default:
		panic("http1: unreachable parser state")
	}

method:
	for i := 0; i < len(data); i++ {
		if data[i] == ' ' {
			var raw []byte
			if requestLine.SegmentLength() == 0 {
				raw = data[:i]
			} else {
				if !requestLine.Append(data[:i]) {
					return true, nil, status.ErrTooLongRequestLine
				}
				raw = requestLine.Finish()
			}

			if len(raw) == 0 {
				return true, nil, status.ErrBadRequest
			}

			req.Method = method.Parse(uf.B2S(raw))
			if req.Method == method.Unknown {
				return true, nil, status.ErrMethodNotAllowed
			}

			data = data[i+1:]
			goto target
		}
	}

	if !requestLine.Append(data) {
		return true, nil, status.ErrTooLongRequestLine
	}
	p.state = sMethod
	return false, nil, nil

target:
	{
		checkpoint := 0
		for i := 0; i < len(data); i++ {
			switch c := data[i]; c {
			case '%':
				if !requestLine.Append(data[checkpoint:i]) {
					return true, nil, status.ErrURITooLong
				}
				if len(data[i+1:]) >= 2 {
					if !appendPercentEscape(requestLine, data[i+1], data[i+2]) {
						return true, nil, status.ErrURITooLong
					}
					i += 2
					checkpoint = i + 1
				} else {
					data = data[i+1:]
					goto targetDecode1
				}
			case ' ':
				if !requestLine.Append(data[checkpoint:i]) {
					return true, nil, status.ErrURITooLong
				}
				req.Path = uf.B2S(requestLine.Finish())
				if len(req.Path) == 0 {
					return true, nil, status.ErrBadRequest
				}
				data = data[i+1:]
				goto version
			case '?':
				if !requestLine.Append(data[checkpoint:i]) {
					return true, nil, status.ErrURITooLong
				}
				req.Path = uf.B2S(requestLine.Finish())
				data = data[i+1:]
				goto queryKey
			case '#':
				return true, nil, status.ErrBadRequest
			default:
				if isProhibited(c) {
					return true, nil, status.ErrBadRequest
				}
			}
		}

		if !requestLine.Append(data[checkpoint:]) {
			return true, nil, status.ErrURITooLong
		}
		p.state = sTarget
		return false, nil, nil
	}

targetDecode1:
	if len(data) == 0 {
		p.state = sTargetDecode1
		return false, nil, nil
	}
	p.urlEncodedChar = data[0]
	data = data[1:]

targetDecode2:
	if len(data) == 0 {
		p.state = sTargetDecode2
		return false, nil, nil
	}
	if !appendPercentEscape(requestLine, p.urlEncodedChar, data[0]) {
		return true, nil, status.ErrURITooLong
	}
	data = data[1:]
	goto target

queryKey:
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case '=':
			p.queryKey = uf.B2S(requestLine.Finish())
			data = data[i+1:]
			goto queryValue
		case ' ':
			req.Params.Add(uf.B2S(requestLine.Finish()), "")
			data = data[i+1:]
			goto version
		case '#':
			return true, nil, status.ErrBadRequest
		default:
			if isProhibited(c) {
				return true, nil, status.ErrBadRequest
			}
			if !requestLine.AppendByte(c) {
				return true, nil, status.ErrTooLongRequestLine
			}
		}
	}
	p.state = sQueryKey
	return false, nil, nil

queryValue:
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case '&':
			req.Params.Add(p.queryKey, uf.B2S(requestLine.Finish()))
			data = data[i+1:]
			goto queryKey
		case ' ':
			req.Params.Add(p.queryKey, uf.B2S(requestLine.Finish()))
			data = data[i+1:]
			goto version
		case '#':
			return true, nil, status.ErrBadRequest
		default:
			if isProhibited(c) {
				return true, nil, status.ErrBadRequest
			}
			if !requestLine.AppendByte(c) {
				return true, nil, status.ErrTooLongRequestLine
			}
		}
	}
	p.state = sQueryValue
	return false, nil, nil

version:
	{
		nl := bytes.IndexByte(data, '\n')
		if nl == -1 {
			if !requestLine.Append(data) {
				return true, nil, status.ErrTooLongRequestLine
			}
			p.state = sVersion
			return false, nil, nil
		}

		var protocol proto.Protocol
		if requestLine.SegmentLength() == 0 {
			protocol = proto.FromBytes(stripCR(data[:nl]))
		} else {
			if !requestLine.Append(data[:nl]) {
				return true, nil, status.ErrTooLongRequestLine
			}
			protocol = proto.FromBytes(stripCR(requestLine.Finish()))
		}

		if protocol == proto.Unknown {
			return true, nil, status.ErrHTTPVersionNotSupported
		}
		req.Protocol = protocol
		data = data[nl+1:]
	}

headerName:
	if len(data) == 0 {
		p.state = sHeaderName
		return false, nil, nil
	}

	switch data[0] {
	case '\n':
		p.finishHeaders()
		return true, data[1:], nil
	case '\r':
		data = data[1:]
		goto headerValueCRLFCR
	}

	{
		colon := bytes.IndexByte(data, ':')
		if colon == -1 {
			if !headers.Append(lower(data)) {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}
			p.state = sHeaderName
			return false, nil, nil
		}

		if !headers.Append(lower(data[:colon])) {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}

		key := uf.B2S(headers.Finish())
		if len(key) == 0 {
			return true, nil, status.ErrBadRequest
		}
		p.headerKey = key
		data = data[colon+1:]

		if p.headersNumber++; p.headersNumber > p.cfg.Headers.MaxCount {
			return true, nil, status.ErrTooManyHeaders
		}

		if key == "content-length" {
			goto contentLength
		}
	}

headerValue:
	{
		nl := bytes.IndexByte(data, '\n')
		if nl == -1 {
			if !headers.Append(data) {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}
			p.state = sHeaderValue
			return false, nil, nil
		}

		if !headers.Append(data[:nl]) {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}
		if seg := headers.Preview(); len(seg) > 0 && seg[len(seg)-1] == '\r' {
			headers.Trunc(1)
		}

		data = data[nl+1:]
		value := uf.B2S(trimLeadingSpace(headers.Finish()))
		key := p.headerKey
		req.Headers.Add(key, value)

		switch key {
		case "connection":
			req.Connection = value
		case "transfer-encoding":
			if p.metTransferEncoding {
				return true, nil, status.ErrBadEncoding
			}
			p.metTransferEncoding = true

			toks, err := splitTokens(value, p.cfg.Headers.MaxEncodingTokens)
			if err != nil {
				return true, nil, err
			}
			if len(toks) > 0 {
				if toks[len(toks)-1] != "chunked" {
					return true, nil, status.ErrBadEncoding
				}
				req.BodyMode = httpmsg.BodyChunked
			}
		}

		goto headerName
	}

contentLength:
	for i, c := range data {
		if c == ' ' {
			continue
		}
		if c < '0' || c > '9' {
			data = data[i:]
			goto contentLengthEnd
		}
		p.contentLength = p.contentLength*10 + int64(c-'0')
	}
	p.state = sContentLength
	return false, nil, nil

contentLengthEnd:
	req.ContentLength = int(p.contentLength)
	req.Headers.Add(p.headerKey, strconv.FormatInt(p.contentLength, 10))
	switch data[0] {
	case '\r':
		data = data[1:]
		goto contentLengthCR
	case '\n':
		data = data[1:]
		goto headerName
	default:
		return true, nil, status.ErrBadRequest
	}

contentLengthCR:
	if len(data) == 0 {
		p.state = sContentLengthCR
		return false, nil, nil
	}
	if data[0] != '\n' {
		return true, nil, status.ErrBadRequest
	}
	data = data[1:]
	goto headerName

headerValueCRLFCR:
	if len(data) == 0 {
		p.state = sHeaderValueCRLFCR
		return false, nil, nil
	}
	if data[0] == '\n' {
		p.finishHeaders()
		return true, data[1:], nil
	}
	return true, nil, status.ErrBadRequest
}

// finishHeaders resolves the body mode by priority — chunked, then fixed
// via Content-Length, then none — and resets the parser for the next
// request on this connection.
func (p *Parser) finishHeaders() {
	req := p.req

	switch {
	case req.BodyMode == httpmsg.BodyChunked:
		// already set while scanning Transfer-Encoding.
	case req.Headers.Has("content-length"):
		if req.ContentLength == 0 {
			req.BodyMode = httpmsg.BodyNone
		} else {
			req.BodyMode = httpmsg.BodyFixed
		}
	default:
		req.BodyMode = httpmsg.BodyNone
	}

	if !method.HasBody(req.Method) {
		req.BodyMode = httpmsg.BodyNone
	}

	p.reset()
}

func (p *Parser) reset() {
	p.metTransferEncoding = false
	p.headersNumber = 0
	p.contentLength = 0
	p.requestLine.Clear()
	p.headers.Clear()
	p.state = sMethod
}

func appendPercentEscape(buf *buffer.Buffer, hi, lo byte) bool {
	c, ok := decodeHex(hi, lo)
	if !ok || isProhibited(c) {
		return buf.AppendByte('%') && buf.AppendByte(hi) && buf.AppendByte(lo)
	}

	// Only the four unreserved escapes are canonicalised; every other
	// percent-encoded byte is preserved verbatim.
	switch c {
	case '~', '_', '.', '-':
		return buf.AppendByte(c)
	default:
		return buf.AppendByte('%') && buf.AppendByte(hi) && buf.AppendByte(lo)
	}
}

func decodeHex(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

func splitTokens(value string, max int) ([]string, error) {
	var toks []string
	for len(value) > 0 {
		var tok string
		if comma := strings.IndexByte(value, ','); comma == -1 {
			tok, value = value, ""
		} else {
			tok, value = value[:comma], value[comma+1:]
		}

		tok = strings.TrimSpace(trimQualifier(tok))
		if len(tok) == 0 {
			return nil, status.ErrBadEncoding
		}
		if len(toks) >= max {
			return nil, status.ErrHeaderFieldsTooLarge
		}
		if strings.EqualFold(tok, "identity") {
			continue
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

func trimQualifier(s string) string {
	if q := strings.IndexByte(s, ';'); q != -1 {
		return s[:q]
	}
	return s
}

func trimLeadingSpace(b []byte) []byte {
	for i, c := range b {
		if c != ' ' {
			return b[i:]
		}
	}
	return b[:0]
}

func stripCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

func isProhibited(c byte) bool {
	return c < 0x20 || c > 0x7e
}

func lower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
