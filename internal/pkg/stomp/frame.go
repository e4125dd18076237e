package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	stompframe "github.com/go-stomp/stomp/v3/frame"
)

// 帧命令
const (
	CmdConnect     = "CONNECT"
	CmdStomp       = "STOMP"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// 常用头
const (
	HdrAcceptVersion = "accept-version"
	HdrHost          = "host"
	HdrHeartBeat     = "heart-beat"
	HdrVersion       = "version"
	HdrDestination   = "destination"
	HdrID            = "id"
	HdrAck           = "ack"
	HdrSubscription  = "subscription"
	HdrMessageID     = "message-id"
	HdrContentType   = "content-type"
	HdrContentLength = "content-length"
	HdrReceipt       = "receipt"
	HdrReceiptID     = "receipt-id"
	HdrMessage       = "message"
)

var ErrInvalidFrame = errors.New("stomp: invalid frame")

// Frame 一个 STOMP 帧，重复的头以第一次出现为准
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

func NewFrame(command string, headers map[string]string, body []byte) *Frame {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &Frame{Command: command, Headers: headers, Body: body}
}

func (f *Frame) Header(key string) string {
	if f.Headers == nil {
		return ""
	}
	return f.Headers[key]
}

// Encode 序列化为线上格式，头按 key 排序输出，content-length 按 body 重新计算
func (f *Frame) Encode() []byte {
	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		if k != HdrContentLength {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	h := stompframe.NewHeader()
	for _, k := range keys {
		h.Add(k, f.Headers[k])
	}
	if len(f.Body) > 0 {
		h.Add(HdrContentLength, strconv.Itoa(len(f.Body)))
	}

	var buf bytes.Buffer
	// 写入内存缓冲不会失败
	_ = stompframe.NewWriter(&buf).Write(&stompframe.Frame{Command: f.Command, Header: h, Body: f.Body})
	return buf.Bytes()
}

// Parse 解析一个 websocket 消息中的全部帧，忽略心跳换行
func Parse(data []byte) ([]*Frame, error) {
	src := &byteSource{data: bytes.TrimLeft(data, "\r\n")}
	r := stompframe.NewReader(src)

	var frames []*Frame
	for src.remaining() > 0 {
		in, err := r.Read()
		if err != nil {
			return frames, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		if in == nil {
			continue
		}
		f := NewFrame(in.Command, nil, in.Body)
		for i := 0; i < in.Header.Len(); i++ {
			k, v := in.Header.GetAt(i)
			if _, dup := f.Headers[k]; !dup {
				f.Headers[k] = v
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// byteSource 每次 Read 只交付一个字节，帧读完时剩余字节数就是尚未解析的部分
type byteSource struct {
	data []byte
	off  int
}

func (b *byteSource) Read(p []byte) (int, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = b.data[b.off]
	b.off++
	return 1, nil
}

func (b *byteSource) remaining() int {
	return len(b.data) - b.off
}
