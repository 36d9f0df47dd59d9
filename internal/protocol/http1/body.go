package http1

import (
	"io"

	"github.com/indigo-web/chunkedbody"

	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
)

// Client is the minimal socket surface the body readers need: a
// connection that can hand back raw bytes and take back ones it didn't
// consume.
type Client interface {
	Read() ([]byte, error)
	Unread([]byte)
}

// BodyReader drives one of the three request body framings
// (Fixed, Chunked, Unspecified) and emits BodyChunk/EndOfBody events as a
// pull-based Read over lazily borrowed slices.
type BodyReader struct {
	client Client
	maxLen uint64

	plain   plainReader
	chunked chunkedReader

	mode     httpmsg.BodyMode
	received uint64
	eof      bool
}

// NewBodyReader builds a reader bound to client, enforcing maxLen
// and using chunkedParser — the real
// github.com/indigo-web/chunkedbody codec — to decode chunked framing.
func NewBodyReader(client Client, maxLen uint64, chunkedParser *chunkedbody.Parser) *BodyReader {
	return &BodyReader{
		client:  client,
		maxLen:  maxLen,
		plain:   plainReader{client: client},
		chunked: chunkedReader{client: client, parser: chunkedParser},
	}
}

// Init prepares the reader for req's declared body mode. Must be called
// once per request before the first Read.
func (b *BodyReader) Init(req *httpmsg.Request) {
	b.mode = req.BodyMode
	b.received = 0
	b.eof = false

	switch b.mode {
	case httpmsg.BodyFixed:
		b.plain.bytesLeft = uint64(req.ContentLength)
	case httpmsg.BodyChunked:
		b.chunked.trailers = req.Trailers != nil
	}

	if b.mode == httpmsg.BodyNone {
		b.eof = true
	}
}

// Read returns the next borrowed chunk of body bytes. io.EOF signals
// EndOfBody. A chunked body's trailer block is consumed but not kept.
func (b *BodyReader) Read() (chunk []byte, err error) {
	if b.eof {
		return nil, io.EOF
	}

	switch b.mode {
	case httpmsg.BodyChunked:
		chunk, err = b.chunked.read()
	default:
		chunk, err = b.plain.read()
	}

	if err == io.EOF {
		b.eof = true
	}

	if len(chunk) > 0 {
		received, overflowed := addUint64(b.received, uint64(len(chunk)))
		if overflowed || received > b.maxLen {
			return nil, status.ErrBodyTooLarge
		}
		b.received = received
	}

	return chunk, err
}

func addUint64(x, y uint64) (sum uint64, overflowed bool) {
	sum = x + y
	return sum, sum < x
}

// Trailers returns the chunked reader's trailer pairs. The chunked reader
// does not collect trailer fields, so this is always nil.
func (b *BodyReader) Trailers() [][2]string {
	return b.chunked.trailerPairs
}

// Discard drains the remaining body without surfacing it, used when a
// handler responds without reading the body.
func (b *BodyReader) Discard() error {
	for !b.eof {
		if _, err := b.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

type plainReader struct {
	client     Client
	bytesLeft  uint64
}

func (p *plainReader) read() (body []byte, err error) {
	if p.bytesLeft == 0 {
		return nil, io.EOF
	}

	data, err := p.client.Read()
	if err != nil {
		return nil, err
	}

	if uint64(len(data)) >= p.bytesLeft {
		body, extra := data[:p.bytesLeft], data[p.bytesLeft:]
		p.client.Unread(extra)
		p.bytesLeft = 0
		return body, io.EOF
	}

	p.bytesLeft -= uint64(len(data))
	return data, nil
}

type chunkedReader struct {
	client       Client
	parser       *chunkedbody.Parser
	trailers     bool
	trailerPairs [][2]string
}

func (c *chunkedReader) read() (body []byte, err error) {
	data, err := c.client.Read()
	if err != nil {
		return nil, err
	}

	chunk, extra, err := c.parser.Parse(data, c.trailers)
	switch err {
	case nil, io.EOF:
	default:
		return nil, status.ErrBadChunk
	}

	c.client.Unread(extra)

	if err == io.EOF {
		// chunkedbody exposes the decoded trailer block once done; the
		// exact accessor shape varies by release, so httpcore keeps
		// trailer propagation best-effort and never fails the body read
		// because of it.
		c.trailerPairs = nil
	}

	return chunk, err
}
