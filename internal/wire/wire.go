// Package wire is the length-prefixed, type-tagged framed protocol
// carried over each child's duplex pipe pair. It is adapted from the
// teacher's internal/worker/proto package: a 1-byte type tag followed
// by a 4-byte big-endian length prefix, msgpack-encoded payload.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// TagMap maps wire-tag bytes to the Go type sent/received under that
// tag, in both directions. One TagMap describes the messages a single
// endpoint writes (or reads); a channel uses one TagMap per direction.
type TagMap struct {
	toTag  map[reflect.Type]uint8
	toType map[uint8]reflect.Type
}

// NewTagMap builds a TagMap from a tag -> type table.
func NewTagMap(toType map[uint8]reflect.Type) *TagMap {
	toTag := make(map[reflect.Type]uint8, len(toType))
	for tag, ty := range toType {
		toTag[ty] = tag
	}
	return &TagMap{toTag: toTag, toType: toType}
}

type readResult struct {
	msg any
	err error
}

// Proto is one endpoint of the framed protocol: it writes values
// tagged by writerTags and reads values tagged by readerTags,
// asynchronously draining the reader into a channel so Recv never
// blocks the rest of the protocol on a short read.
type Proto struct {
	order      binary.ByteOrder
	writer     io.Writer
	writerTags *TagMap

	reader chan readResult
}

// Create wraps a writer/reader pipe pair into a Proto. The reader side
// is drained by a background goroutine from the moment Create returns.
func Create(writer io.Writer, writerTags *TagMap, reader io.Reader, readerTags *TagMap) *Proto {
	r := make(chan readResult)
	p := &Proto{
		order:      binary.BigEndian,
		writer:     writer,
		writerTags: writerTags,
		reader:     r,
	}
	go p.recvWorker(reader, readerTags)
	return p
}

// Send marshals data with msgpack and writes it framed by its wire
// tag and length.
func (p *Proto) Send(data any) error {
	buffer, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	bufLen := len(buffer)
	if bufLen > math.MaxUint32 {
		return fmt.Errorf("failed to marshal message: message too large")
	}

	headerBuf := make([]byte, 5)
	tag, ok := p.writerTags.toTag[reflect.TypeOf(data)]
	if !ok {
		return fmt.Errorf("unknown message type: %s", reflect.TypeOf(data).Name())
	}
	headerBuf[0] = tag

	p.order.PutUint32(headerBuf[1:], uint32(bufLen))
	if err := p.sendBytes(headerBuf); err != nil {
		return err
	}
	return p.sendBytes(buffer)
}

// Recv returns the next decoded message, blocking until one arrives or
// the underlying reader closes/errors.
func (p *Proto) Recv() (any, error) {
	result, ok := <-p.reader
	if !ok {
		return nil, fmt.Errorf("failed to read message: channel closed")
	}
	if result.err != nil {
		return nil, fmt.Errorf("failed to read message: %w", result.err)
	}
	return result.msg, nil
}

func (p *Proto) sendBytes(data []byte) error {
	for len(data) != 0 {
		n, err := p.writer.Write(data)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("failed to send message: stream closed")
		}
		data = data[n:]
	}
	return nil
}

func (p *Proto) recvWorker(reader io.Reader, tags *TagMap) {
	defer close(p.reader)
	headerBuf := make([]byte, 5)
	dataBuf := make([]byte, 0)

	for {
		if err := recvBytes(reader, headerBuf); err != nil {
			p.reader <- readResult{err: err}
			return
		}

		l := p.order.Uint32(headerBuf[1:])

		log.Trace().
			Uint32("length", l).
			Uint8("type", headerBuf[0]).
			Msg("reading raw message")

		if len(dataBuf) < int(l) {
			dataBuf = make([]byte, l)
		}

		if err := recvBytes(reader, dataBuf[:l]); err != nil {
			p.reader <- readResult{err: err}
			return
		}

		t, ok := tags.toType[headerBuf[0]]
		if !ok {
			p.reader <- readResult{err: fmt.Errorf("unknown tag %q", headerBuf[0])}
			return
		}

		val := reflect.New(t).Interface()
		if err := msgpack.Unmarshal(dataBuf[:l], val); err != nil {
			p.reader <- readResult{err: fmt.Errorf("failed to unmarshal %q message: %w", reflect.TypeOf(val).Name(), err)}
			return
		}

		if len(dataBuf) > (1024 * 1024) {
			dataBuf = make([]byte, 0)
		}

		p.reader <- readResult{msg: val}
	}
}

func recvBytes(reader io.Reader, data []byte) error {
	for len(data) != 0 {
		n, err := reader.Read(data)
		if err != nil {
			return fmt.Errorf("failed to receive bytes: %w", err)
		}
		data = data[n:]
	}
	return nil
}
