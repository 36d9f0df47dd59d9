package handler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
)

// segment is one path template piece: either a literal to match verbatim
// or a capture ({name} / {name:regex}) recorded into Request.Vars.
type segment struct {
	literal string
	name    string
	pattern *regexp.Regexp
}

func (s segment) isCapture() bool { return s.name != "" }

// Route pairs an optional method filter and a URI template with a
// terminal Handler.
type Route struct {
	method   method.Method // method.Unknown means "any method"
	segments []segment
	handler  Handler
}

// NewRoute compiles template into a Route. Templates split on '/';
// `{name}` captures one segment unconstrained, `{name:regex}` constrains
// it. An empty m matches any method.
func NewRoute(m method.Method, template string, h Handler) *Route {
	r := &Route{method: m, handler: h}
	for _, part := range strings.Split(strings.Trim(template, "/"), "/") {
		if part == "" {
			continue
		}
		r.segments = append(r.segments, compileSegment(part))
	}
	return r
}

func compileSegment(part string) segment {
	if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
		return segment{literal: part}
	}

	inner := part[1 : len(part)-1]
	name, pat, hasPattern := strings.Cut(inner, ":")
	if !hasPattern {
		return segment{name: name}
	}
	return segment{name: name, pattern: regexp.MustCompile("^" + pat + "$")}
}

// Handle implements Handler: it matches req.Path against the compiled
// template — trailing slashes are treated permissively, matching one
// path both with and without a final '/' — captures
// named segments into req.Vars, and retains any `;k=v` matrix
// parameters found on a segment, then delegates to the wrapped handler.
func (r *Route) Handle(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) Result {
	if r.method != method.Unknown && r.method != req.Method {
		return NotHandled
	}

	parts := strings.Split(strings.Trim(req.Path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	if len(parts) != len(r.segments) {
		return NotHandled
	}

	req.Vars.Clear()
	for i, seg := range r.segments {
		raw := parts[i]
		value, matrix := splitMatrix(raw)

		if !seg.isCapture() {
			if seg.literal != value {
				return NotHandled
			}
			continue
		}

		decoded, err := url.PathUnescape(value)
		if err != nil {
			return NotHandled
		}
		if seg.pattern != nil && !seg.pattern.MatchString(decoded) {
			return NotHandled
		}

		req.Vars.Add(seg.name, decoded)
		for k, v := range matrix {
			req.Vars.Add(seg.name+"."+k, v)
		}
	}

	return r.handler.Handle(req, resp, ex)
}

// splitMatrix pulls `;k=v;k2=v2` matrix parameters off a path segment,
// retaining them as named vars alongside the segment's own capture.
func splitMatrix(segment string) (value string, params map[string]string) {
	idx := strings.IndexByte(segment, ';')
	if idx < 0 {
		return segment, nil
	}

	value = segment[:idx]
	params = make(map[string]string)
	for _, kv := range strings.Split(segment[idx+1:], ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		params[k] = v
	}
	return value, params
}
