// Package wireformat implements the length-prefixed, mixed JSON+binary wire
// frame used by the Wyoming TCP surface: a JSON header terminated by a
// newline, followed by an optional JSON data segment and an optional binary
// payload segment, with the header carrying the exact byte lengths of both
// tail segments.
package wireformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNeedMore is returned by Decode when buf does not yet contain a
// complete frame. Callers append more bytes and retry; it is never treated
// as a connection-fatal error.
var ErrNeedMore = errors.New("wireformat: need more data")

// Frame is one logical protocol message.
type Frame struct {
	Type    string
	Version string
	Data    []byte
	Payload []byte
}

type header struct {
	Type          string `json:"type"`
	Version       string `json:"version,omitempty"`
	DataLength    int    `json:"data_length,omitempty"`
	PayloadLength int    `json:"payload_length,omitempty"`
}

// Decode locates the header terminator, parses the header, and — once the
// full frame has arrived — slices the data and payload segments without
// copying. It returns ErrNeedMore (consumed == 0) when buf holds a partial
// frame, and a non-nil error for a malformed header; both are distinguished
// by the caller via errors.Is(err, ErrNeedMore).
func Decode(buf []byte) (Frame, int, error) {
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		return Frame{}, 0, ErrNeedMore
	}

	var h header
	if err := json.Unmarshal(buf[:nl], &h); err != nil {
		return Frame{}, 0, fmt.Errorf("wireformat: malformed header: %w", err)
	}
	if h.Type == "" {
		return Frame{}, 0, errors.New("wireformat: header missing type")
	}
	if h.DataLength < 0 || h.PayloadLength < 0 {
		return Frame{}, 0, errors.New("wireformat: header has negative length")
	}

	headerEnd := nl + 1
	dataEnd := headerEnd + h.DataLength
	total := dataEnd + h.PayloadLength

	if len(buf) < total {
		return Frame{}, 0, ErrNeedMore
	}

	frame := Frame{
		Type:    h.Type,
		Version: h.Version,
		Data:    buf[headerEnd:dataEnd],
		Payload: buf[dataEnd:total],
	}
	return frame, total, nil
}

// Encode serializes f in the canonical header key order (type, version,
// data_length, payload_length, each omitted when zero/empty) followed by a
// single newline, the data segment, and the payload segment. No trailing
// newline is emitted.
func Encode(f Frame) ([]byte, error) {
	h := header{
		Type:          f.Type,
		Version:       f.Version,
		DataLength:    len(f.Data),
		PayloadLength: len(f.Payload),
	}
	headerBytes, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("wireformat: encode header: %w", err)
	}

	out := make([]byte, 0, len(headerBytes)+1+len(f.Data)+len(f.Payload))
	out = append(out, headerBytes...)
	out = append(out, '\n')
	out = append(out, f.Data...)
	out = append(out, f.Payload...)
	return out, nil
}
