package corebus

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/queue"
)

// frameKind tags the envelope carried by a frame.
type frameKind uint8

const (
	frameCall frameKind = iota + 1
	frameNotify
	frameResponse
	frameSubEvent
	frameClose
	frameSubCall
)

// maxFrameSize bounds a single frame's payload, guarding a connection
// against a peer claiming an unbounded length prefix.
const maxFrameSize = 1 << 20

// envelope is the msgpack payload shared by every frame kind; unused fields
// are omitted on the wire via msgpack's struct tags.
type envelope struct {
	ReqID  uint64 `msgpack:"id,omitempty"`
	Method string `msgpack:"method,omitempty"`
	Params any    `msgpack:"params,omitempty"`
	Kind   string `msgpack:"kind,omitempty"`
	Msg    string `msgpack:"msg,omitempty"`
	Result any    `msgpack:"result,omitempty"`
}

type frame struct {
	kind frameKind
	env  envelope
}

// writeFrame serializes and writes a single length-prefixed frame. Safe to
// call concurrently only if the caller serializes writes on w itself.
func writeFrame(w io.Writer, f frame) error {
	body, err := msgpack.Marshal(&f.env)
	if err != nil {
		return corert.WrapErr("corebus_write_frame", corert.NewErr("corebus_encode", corert.KindInvalid, err.Error()))
	}
	if len(body) > maxFrameSize {
		return corert.NewErr("corebus_write_frame", corert.KindRange, "frame payload too large")
	}

	out := queue.GetBuffer(uint32(5 + len(body)))
	defer queue.PutBuffer(out)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)))
	out[4] = byte(f.kind)
	copy(out[5:], body)

	if _, err := w.Write(out); err != nil {
		return corert.WrapErr("corebus_write_frame", toIOErr(err))
	}
	return nil
}

// readFrame reads and decodes the next length-prefixed frame from r.
func readFrame(r io.Reader) (frame, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return frame{}, corert.WrapErr("corebus_read_frame", toIOErr(err))
	}
	length := binary.BigEndian.Uint32(header[0:4])
	if length > maxFrameSize {
		return frame{}, corert.NewErr("corebus_read_frame", corert.KindRange, "frame payload too large")
	}
	kind := frameKind(header[4])

	body := queue.GetBuffer(length)
	defer queue.PutBuffer(body)
	if _, err := io.ReadFull(r, body); err != nil {
		return frame{}, toIOErr(err)
	}

	var env envelope
	if err := msgpack.Unmarshal(body, &env); err != nil {
		return frame{}, corert.NewErr("corebus_read_frame", corert.KindInvalid, fmt.Sprintf("malformed frame: %v", err))
	}
	return frame{kind: kind, env: env}, nil
}

func toIOErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return corert.WrapErr("corebus_io", corert.NewErr("corebus_io", corert.KindNoConn, err.Error()))
	}
	return corert.WrapErr("corebus_io", corert.NewErr("corebus_io", corert.KindFailure, err.Error()))
}
