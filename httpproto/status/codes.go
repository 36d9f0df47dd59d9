// Package status defines HTTP status codes as a dedicated type, avoiding
// the name collisions that arise between an HTTP library's own
// status package and net/http.
package status

type (
	// Code is a three-digit HTTP status code.
	Code uint16
	// Text is a status reason phrase.
	Text string
)

// Status codes referenced by this module. Not the full IANA registry —
// only what the wire protocol engine itself emits or accepts from
// handlers; application code is free to use any Code value, Reason()
// degrades gracefully for codes outside this table.
const (
	Continue           Code = 100
	SwitchingProtocols Code = 101

	OK             Code = 200
	Created        Code = 201
	Accepted       Code = 202
	NoContent      Code = 204
	ResetContent   Code = 205
	PartialContent Code = 206

	MultipleChoices   Code = 300
	MovedPermanently  Code = 301
	Found             Code = 302
	SeeOther          Code = 303
	NotModified       Code = 304
	TemporaryRedirect Code = 307
	PermanentRedirect Code = 308

	BadRequest                   Code = 400
	Unauthorized                 Code = 401
	Forbidden                    Code = 403
	NotFound                     Code = 404
	MethodNotAllowed             Code = 405
	RequestTimeout               Code = 408
	Conflict                     Code = 409
	LengthRequired               Code = 411
	RequestEntityTooLarge        Code = 413
	RequestURITooLong            Code = 414
	UnsupportedMediaType         Code = 415
	ExpectationFailed            Code = 417
	MisdirectedRequest           Code = 421
	UnprocessableEntity          Code = 422
	UpgradeRequired              Code = 426
	TooManyRequests              Code = 429
	RequestHeaderFieldsTooLarge  Code = 431
	UnavailableForLegalReasons   Code = 451

	InternalServerError     Code = 500
	NotImplemented          Code = 501
	BadGateway              Code = 502
	ServiceUnavailable      Code = 503
	GatewayTimeout          Code = 504
	HTTPVersionNotSupported Code = 505

	// CloseConnection is not a real wire status; it's a sentinel used
	// internally (see errors.go) to signal "abort, don't respond".
	CloseConnection Code = 0
)

var reasonPhrases = map[Code]Text{
	Continue:                    "Continue",
	SwitchingProtocols:          "Switching Protocols",
	OK:                          "OK",
	Created:                     "Created",
	Accepted:                    "Accepted",
	NoContent:                   "No Content",
	ResetContent:                "Reset Content",
	PartialContent:              "Partial Content",
	MultipleChoices:             "Multiple Choices",
	MovedPermanently:            "Moved Permanently",
	Found:                       "Found",
	SeeOther:                    "See Other",
	NotModified:                 "Not Modified",
	TemporaryRedirect:           "Temporary Redirect",
	PermanentRedirect:           "Permanent Redirect",
	BadRequest:                  "Bad Request",
	Unauthorized:                "Unauthorized",
	Forbidden:                   "Forbidden",
	NotFound:                    "Not Found",
	MethodNotAllowed:            "Method Not Allowed",
	RequestTimeout:              "Request Timeout",
	Conflict:                    "Conflict",
	LengthRequired:              "Length Required",
	RequestEntityTooLarge:       "Request Entity Too Large",
	RequestURITooLong:           "Request URI Too Long",
	UnsupportedMediaType:        "Unsupported Media Type",
	ExpectationFailed:           "Expectation Failed",
	MisdirectedRequest:          "Misdirected Request",
	UnprocessableEntity:         "Unprocessable Entity",
	UpgradeRequired:             "Upgrade Required",
	TooManyRequests:             "Too Many Requests",
	RequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	UnavailableForLegalReasons:  "Unavailable For Legal Reasons",
	InternalServerError:         "Internal Server Error",
	NotImplemented:              "Not Implemented",
	BadGateway:                  "Bad Gateway",
	ServiceUnavailable:          "Service Unavailable",
	GatewayTimeout:              "Gateway Timeout",
	HTTPVersionNotSupported:     "HTTP Version Not Supported",
}

// Reason returns the reason phrase for code, or "Unknown Status Code".
func Reason(code Code) Text {
	if t, ok := reasonPhrases[code]; ok {
		return t
	}
	return "Unknown Status Code"
}

// IsInformational reports whether code is a 1xx status.
func IsInformational(code Code) bool {
	return code >= 100 && code < 200
}

// HasNoBody reports the status codes
// bodyless on the response side, regardless of method.
func HasNoBody(code Code) bool {
	return IsInformational(code) || code == NoContent || code == NotModified
}
