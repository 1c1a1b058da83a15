package sensor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
)

// MaxFrameSize bounds the length prefix a decoder accepts. A SensorData message
// is a few dozen bytes; anything larger is treated as a corrupt stream.
const MaxFrameSize = 64 * 1024

var marshalOptions = protodelim.MarshalOptions{
	MarshalOptions: proto.MarshalOptions{Deterministic: true},
}

// DecodeError reports a frame that is malformed, truncated by the peer closing
// mid-frame, or announces a length above MaxFrameSize.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode sensor frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode returns one length-delimited frame: a uvarint byte count followed by
// the SensorData message.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := marshalOptions.MarshalTo(&buf, r.ToProto()); err != nil {
		return nil, fmt.Errorf("encode sensor frame: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo encodes r and writes the frame to w with a single Write call.
func WriteTo(w io.Writer, r Record) error {
	frame, err := Encode(r)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Decoder reads consecutive frames from a byte stream.
type Decoder struct {
	src *ioErrorReader
	br  *bufio.Reader
}

// NewDecoder returns a Decoder reading from r. The decoder buffers, so it must
// be the only reader of r.
func NewDecoder(r io.Reader) *Decoder {
	src := &ioErrorReader{r: r}
	return &Decoder{src: src, br: bufio.NewReader(src)}
}

// Decode blocks until a complete frame is available and consumes exactly that
// frame.
//
// It returns io.EOF when the stream ended cleanly on a frame boundary, a
// *DecodeError for a malformed or truncated frame, and the underlying error
// unchanged when the transport itself failed.
func (d *Decoder) Decode() (Record, error) {
	msg := NewMessage()
	err := protodelim.UnmarshalOptions{MaxSize: MaxFrameSize}.UnmarshalFrom(d.br, msg)
	if err == nil {
		return FromProto(msg)
	}

	if ioErr := d.src.take(); ioErr != nil {
		return Record{}, ioErr
	}
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}
	return Record{}, &DecodeError{Err: err}
}

// ioErrorReader remembers the last transport error so that Decode can tell it
// apart from protocol errors reported by protodelim.
type ioErrorReader struct {
	r   io.Reader
	err error
}

func (r *ioErrorReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (r *ioErrorReader) take() error {
	err := r.err
	r.err = nil
	return err
}
