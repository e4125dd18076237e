package stomp

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrClosed         = errors.New("stomp: connection closed")
	ErrConnectRefused = errors.New("stomp: connect refused")
)

const (
	defaultConnectTimeout = 10 * time.Second
	writeTimeout          = 10 * time.Second
)

// Subprotocols 与 stomp.js 一致
var Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

// MessageHandler 在读协程中按服务端发送顺序同步调用
type MessageHandler func(f *Frame)

// Options 连接参数
type Options struct {
	Host           string
	Headers        map[string]string // 附加到 CONNECT 帧，例如 Authorization
	HeartBeat      time.Duration     // 0 表示关闭心跳
	ConnectTimeout time.Duration
	Dialer         *websocket.Dialer
}

// Conn 一条 STOMP over websocket 连接
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu     sync.RWMutex
	subs   map[string]MessageHandler
	nextID atomic.Uint64

	readTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial 建立 websocket 并完成 CONNECT/CONNECTED 握手
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultConnectTimeout,
			Subprotocols:     Subprotocols,
		}
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stomp: dial %s: %w", url, err)
	}

	c := &Conn{
		ws:   ws,
		subs: make(map[string]MessageHandler),
		done: make(chan struct{}),
	}

	hb := strconv.FormatInt(opts.HeartBeat.Milliseconds(), 10)
	headers := map[string]string{
		HdrAcceptVersion: "1.2,1.1,1.0",
		HdrHeartBeat:     hb + "," + hb,
	}
	if opts.Host != "" {
		headers[HdrHost] = opts.Host
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = ws.SetWriteDeadline(deadline)
	if err = ws.WriteMessage(websocket.TextMessage, NewFrame(CmdConnect, headers, nil).Encode()); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("stomp: send CONNECT: %w", err)
	}

	connected, err := c.awaitConnected(deadline)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	_ = ws.SetWriteDeadline(time.Time{})

	send, recv := negotiateHeartBeat(opts.HeartBeat, connected.Header(HdrHeartBeat))
	if recv > 0 {
		c.readTimeout = 3 * recv
	}
	_ = ws.SetReadDeadline(c.nextReadDeadline())

	go c.readLoop()
	if send > 0 {
		go c.heartbeatLoop(send)
	}
	return c, nil
}

func (c *Conn) awaitConnected(deadline time.Time) (*Frame, error) {
	_ = c.ws.SetReadDeadline(deadline)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("stomp: await CONNECTED: %w", err)
		}
		frames, err := Parse(data)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			switch f.Command {
			case CmdConnected:
				return f, nil
			case CmdError:
				return nil, fmt.Errorf("%w: %s %s", ErrConnectRefused, f.Header(HdrMessage), strings.TrimSpace(string(f.Body)))
			default:
				return nil, fmt.Errorf("%w: unexpected %s before CONNECTED", ErrInvalidFrame, f.Command)
			}
		}
	}
}

// negotiateHeartBeat 按 STOMP 规则计算发送/接收心跳间隔
func negotiateHeartBeat(ours time.Duration, serverHeader string) (send, recv time.Duration) {
	if ours <= 0 || serverHeader == "" {
		return 0, 0
	}
	sx, sy, ok := strings.Cut(serverHeader, ",")
	if !ok {
		return 0, 0
	}
	serverSend, _ := strconv.Atoi(strings.TrimSpace(sx))
	serverWant, _ := strconv.Atoi(strings.TrimSpace(sy))

	if serverWant > 0 {
		send = max(ours, time.Duration(serverWant)*time.Millisecond)
	}
	if serverSend > 0 {
		recv = max(ours, time.Duration(serverSend)*time.Millisecond)
	}
	return send, recv
}

func (c *Conn) nextReadDeadline() time.Time {
	if c.readTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.readTimeout)
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		_ = c.ws.SetReadDeadline(c.nextReadDeadline())

		frames, err := Parse(data)
		if err != nil {
			log.Warn("stomp: discard unparsable frame", "err", err)
		}
		for _, f := range frames {
			switch f.Command {
			case CmdMessage:
				c.mu.RLock()
				h := c.subs[f.Header(HdrSubscription)]
				c.mu.RUnlock()
				if h != nil {
					h(f)
				}
			case CmdError:
				c.fail(fmt.Errorf("stomp: server error: %s %s", f.Header(HdrMessage), strings.TrimSpace(string(f.Body))))
				return
			case CmdReceipt:
			default:
				log.Debug("stomp: ignore frame", "command", f.Command)
			}
		}
	}
}

func (c *Conn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.writeRaw([]byte{'\n'}); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *Conn) writeRaw(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) write(f *Frame) error {
	return c.writeRaw(f.Encode())
}

// Subscribe 订阅目的地，返回订阅 ID
func (c *Conn) Subscribe(destination string, h MessageHandler) (string, error) {
	id := "sub-" + strconv.FormatUint(c.nextID.Add(1)-1, 10)

	c.mu.Lock()
	c.subs[id] = h
	c.mu.Unlock()

	err := c.write(NewFrame(CmdSubscribe, map[string]string{
		HdrID:          id,
		HdrDestination: destination,
		HdrAck:         "auto",
	}, nil))
	if err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return "", err
	}
	return id, nil
}

func (c *Conn) Unsubscribe(id string) error {
	c.mu.Lock()
	_, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.write(NewFrame(CmdUnsubscribe, map[string]string{HdrID: id}, nil))
}

// Send 发布消息
func (c *Conn) Send(destination, contentType string, body []byte) error {
	headers := map[string]string{HdrDestination: destination}
	if contentType != "" {
		headers[HdrContentType] = contentType
	}
	return c.write(NewFrame(CmdSend, headers, body))
}

// Done 连接断开后关闭
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err 断开原因
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close 发送 DISCONNECT 并关闭底层连接，不等待 RECEIPT
func (c *Conn) Close() error {
	_ = c.write(NewFrame(CmdDisconnect, map[string]string{HdrReceipt: uuid.NewString()}, nil))
	c.fail(ErrClosed)
	return nil
}

func (c *Conn) fail(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		_ = c.ws.Close()
	})
}
