package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 火山引擎语音 v3 二进制帧：4 字节头 + 可选序号/事件/会话字段 + payload。
const protocolVersion = 0b0001

type frameType uint8

const (
	frameFullClient  frameType = 0b0001
	frameAudioClient frameType = 0b0010
	frameFullServer  frameType = 0b1001
	frameAudioServer frameType = 0b1011
	frameError       frameType = 0b1111
)

type frameFlags uint8

const (
	flagNoSequence       frameFlags = 0b0000
	flagPositiveSequence frameFlags = 0b0001
	flagLastNoSequence   frameFlags = 0b0010
	flagNegativeSequence frameFlags = 0b0011
	flagEvent            frameFlags = 0b0100
)

const (
	serializationNone uint8 = 0b0000
	serializationJSON uint8 = 0b0001

	compressionNone uint8 = 0b0000
	compressionGzip uint8 = 0b0001
)

// 服务端事件编号
const (
	eventStartConnection    int32 = 1
	eventFinishConnection   int32 = 2
	eventConnectionStarted  int32 = 50
	eventConnectionFailed   int32 = 51
	eventConnectionFinished int32 = 52
	eventSessionStarted     int32 = 150
	eventSessionFinished    int32 = 152
	eventSessionFailed      int32 = 153
)

var errShortFrame = errors.New("frame too short")

// frame 为解码后的单个协议帧，payload 始终为解压后的内容。
type frame struct {
	kind          frameType
	flags         frameFlags
	serialization uint8
	compression   uint8
	sequence      int32
	event         int32
	sessionID     string
	connectID     string
	errorCode     uint32
	payload       []byte
}

func (f *frame) hasSequence() bool {
	return f.flags&0b0011 == flagPositiveSequence || f.flags&0b0011 == flagNegativeSequence
}

func (f *frame) hasEvent() bool {
	return f.flags&flagEvent != 0
}

// final 判断是否为流中的最后一帧。
func (f *frame) final() bool {
	low := f.flags & 0b0011
	if low == flagLastNoSequence || low == flagNegativeSequence {
		return true
	}
	return f.hasSequence() && f.sequence < 0
}

func carriesSessionID(event int32) bool {
	switch event {
	case eventStartConnection, eventFinishConnection,
		eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return false
	}
	return true
}

func carriesConnectID(event int32) bool {
	switch event {
	case eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return true
	}
	return false
}

// marshal 编码帧，按 compression 字段压缩 payload。
func (f *frame) marshal() ([]byte, error) {
	payload := f.payload
	if f.compression == compressionGzip {
		compressed, err := gzipBytes(payload)
		if err != nil {
			return nil, err
		}
		payload = compressed
	}

	buf := bytes.NewBuffer(make([]byte, 0, 16+len(payload)))
	buf.WriteByte(protocolVersion<<4 | 0b0001)
	buf.WriteByte(byte(f.kind)<<4 | byte(f.flags))
	buf.WriteByte(f.serialization<<4 | f.compression)
	buf.WriteByte(0)

	if f.hasSequence() {
		_ = binary.Write(buf, binary.BigEndian, f.sequence)
	}
	if f.hasEvent() {
		_ = binary.Write(buf, binary.BigEndian, f.event)
		if carriesSessionID(f.event) {
			writeSized(buf, []byte(f.sessionID))
		}
		if carriesConnectID(f.event) {
			writeSized(buf, []byte(f.connectID))
		}
	}
	if f.kind == frameError {
		_ = binary.Write(buf, binary.BigEndian, f.errorCode)
	}
	writeSized(buf, payload)

	return buf.Bytes(), nil
}

func writeSized(buf *bytes.Buffer, data []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

// unmarshalFrame 解码服务端或客户端帧。
func unmarshalFrame(data []byte) (*frame, error) {
	if len(data) < 4 {
		return nil, errShortFrame
	}

	headerSize := int(data[0]&0x0f) * 4
	if headerSize < 4 || len(data) < headerSize {
		return nil, fmt.Errorf("invalid header size %d", headerSize)
	}

	f := &frame{
		kind:          frameType(data[1] >> 4),
		flags:         frameFlags(data[1] & 0x0f),
		serialization: data[2] >> 4,
		compression:   data[2] & 0x0f,
	}

	r := bytes.NewReader(data[headerSize:])
	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.sequence); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}
	if f.hasEvent() {
		if err := binary.Read(r, binary.BigEndian, &f.event); err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		if carriesSessionID(f.event) {
			id, err := readSized(r)
			if err != nil {
				return nil, fmt.Errorf("read session id: %w", err)
			}
			f.sessionID = string(id)
		}
		if carriesConnectID(f.event) {
			id, err := readSized(r)
			if err != nil {
				return nil, fmt.Errorf("read connect id: %w", err)
			}
			f.connectID = string(id)
		}
	}
	if f.kind == frameError {
		if err := binary.Read(r, binary.BigEndian, &f.errorCode); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	payload, err := readSized(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if f.compression == compressionGzip && len(payload) > 0 {
		payload, err = gunzipBytes(payload)
		if err != nil {
			return nil, err
		}
	}
	f.payload = payload

	return f, nil
}

func readSized(r *bytes.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	if int(size) > r.Len() {
		return nil, fmt.Errorf("declared size %d exceeds remaining %d bytes", size, r.Len())
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return out, nil
}
