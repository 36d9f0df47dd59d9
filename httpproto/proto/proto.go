// Package proto enumerates the protocol variants an Exchange may run
// under.
package proto

// Protocol is a bitmask so that Upgrade negotiation can express "either of" sets cheaply.
type Protocol uint8

const (
	Unknown Protocol = 0
	HTTP10  Protocol = 1 << iota
	HTTP11
	HTTP2

	// H1 is the set of protocols the H1 parser produces.
	H1 = HTTP10 | HTTP11
)

func (p Protocol) String() string {
	switch p {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	case HTTP2:
		return "HTTP/2"
	default:
		return "unknown"
	}
}

// FromBytes parses a request/status line's protocol token.
func FromBytes(b []byte) Protocol {
	switch string(b) {
	case "HTTP/1.0":
		return HTTP10
	case "HTTP/1.1":
		return HTTP11
	case "HTTP/2.0", "HTTP/2":
		return HTTP2
	default:
		return Unknown
	}
}

// ToBytes renders the protocol back to its wire token, used both when
// writing status lines and when echoing an Upgrade response.
func ToBytes(p Protocol) []byte {
	switch p {
	case HTTP10:
		return []byte("HTTP/1.0")
	case HTTP11:
		return []byte("HTTP/1.1")
	case HTTP2:
		return []byte("HTTP/2.0")
	default:
		return nil
	}
}

// ChooseUpgrade maps an Upgrade header token to a Protocol, or Unknown if
// unsupported. h2c cleartext upgrade is deliberately not recognised here.
func ChooseUpgrade(token string) Protocol {
	switch token {
	case "HTTP/2.0", "h2c":
		return Unknown
	default:
		return Unknown
	}
}
