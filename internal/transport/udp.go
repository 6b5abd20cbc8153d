package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"audioviz/internal/log"
)

// UDPPublisher sends frame payloads as compact binary datagrams. Only
// FrameMessage payloads are packed; other types are ignored so the same
// Send path can feed mixed transports.
//
// Packet layout (big endian):
//
//	uint32   sequence number
//	float64  frame time in seconds
//	float32  beat envelope
//	float32  rms
//	float64  bpm
//	uint16   band count N
//	N float32 band values
type UDPPublisher struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	buf    bytes.Buffer
	seq    uint32
	closed bool
}

var _ Transport = (*UDPPublisher)(nil)

// NewUDPPublisher dials the target address ("host:port").
func NewUDPPublisher(target string) (*UDPPublisher, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", target, err)
	}
	log.Infof("Transport: udp publishing to %s", conn.RemoteAddr())
	return &UDPPublisher{conn: conn}, nil
}

// Send packs a FrameMessage and transmits it as one datagram.
func (p *UDPPublisher) Send(data interface{}) error {
	msg, ok := data.(FrameMessage)
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("transport: udp publisher closed")
	}

	p.seq++
	p.buf.Reset()
	var err error
	for _, field := range []interface{}{
		p.seq,
		msg.Time,
		msg.Beat,
		msg.RMS,
		msg.BPM,
		uint16(len(msg.Bands)),
		msg.Bands,
	} {
		if err = binary.Write(&p.buf, binary.BigEndian, field); err != nil {
			return fmt.Errorf("transport: pack: %w", err)
		}
	}

	if _, err := p.conn.Write(p.buf.Bytes()); err != nil {
		return fmt.Errorf("transport: udp send: %w", err)
	}
	return nil
}

// Close shuts the socket down.
func (p *UDPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}
