// ABOUTME: Binary framing for exported trigger captures
// ABOUTME: Fixed little-endian header followed by raw uint16 samples
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/harper/scope-capture/internal/domain/channel"
)

// Frame layout, all little-endian:
//
//	magic      [4]byte  "SCAP"
//	version    uint16
//	idLen      uint16
//	chanLen    uint16
//	pre        uint32
//	post       uint32
//	triggered  int64    unix nanoseconds
//	count      uint32
//	id         [idLen]byte
//	chan       [chanLen]byte
//	samples    [count]uint16

const version = 1

var magic = [4]byte{'S', 'C', 'A', 'P'}

// ErrFormat is returned by Decode for data that is not a capture frame.
var ErrFormat = errors.New("malformed capture frame")

const headerBytes = 4 + 2 + 2 + 2 + 4 + 4 + 8 + 4

// Encode renders a capture for an export transport.
func Encode(c *channel.Capture) []byte {
	id := []byte(c.ID)
	chanID := []byte(c.ChannelID)
	var buf bytes.Buffer
	buf.Grow(headerBytes + len(id) + len(chanID) + 2*len(c.Samples))

	buf.Write(magic[:])
	le := binary.LittleEndian

	var scratch [8]byte
	le.PutUint16(scratch[:2], version)
	buf.Write(scratch[:2])
	le.PutUint16(scratch[:2], uint16(len(id)))
	buf.Write(scratch[:2])
	le.PutUint16(scratch[:2], uint16(len(chanID)))
	buf.Write(scratch[:2])
	le.PutUint32(scratch[:4], uint32(c.Pre))
	buf.Write(scratch[:4])
	le.PutUint32(scratch[:4], uint32(c.Post))
	buf.Write(scratch[:4])
	le.PutUint64(scratch[:8], uint64(c.TriggeredAt.UnixNano()))
	buf.Write(scratch[:8])
	le.PutUint32(scratch[:4], uint32(len(c.Samples)))
	buf.Write(scratch[:4])

	buf.Write(id)
	buf.Write(chanID)
	for _, s := range c.Samples {
		le.PutUint16(scratch[:2], s)
		buf.Write(scratch[:2])
	}

	return buf.Bytes()
}

// Decode parses an encoded capture frame.
func Decode(data []byte) (*channel.Capture, error) {
	if len(data) < headerBytes {
		return nil, fmt.Errorf("wire: %w: short header", ErrFormat)
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("wire: %w: bad magic", ErrFormat)
	}

	le := binary.LittleEndian
	v := le.Uint16(data[4:])
	if v != version {
		return nil, fmt.Errorf("wire: %w: unsupported version %d", ErrFormat, v)
	}

	idLen := int(le.Uint16(data[6:]))
	chanLen := int(le.Uint16(data[8:]))
	pre := int(le.Uint32(data[10:]))
	post := int(le.Uint32(data[14:]))
	triggered := int64(le.Uint64(data[18:]))
	count := int(le.Uint32(data[26:]))

	want := headerBytes + idLen + chanLen + 2*count
	if len(data) != want {
		return nil, fmt.Errorf("wire: %w: length %d, expected %d", ErrFormat, len(data), want)
	}

	body := data[headerBytes:]
	samples := make([]uint16, count)
	for i := range samples {
		samples[i] = le.Uint16(body[idLen+chanLen+2*i:])
	}

	return &channel.Capture{
		ID:          string(body[:idLen]),
		ChannelID:   string(body[idLen : idLen+chanLen]),
		Pre:         pre,
		Post:        post,
		TriggeredAt: time.Unix(0, triggered),
		Samples:     samples,
	}, nil
}
