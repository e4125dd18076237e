// Package stomptest 提供进程内的 STOMP over websocket 服务端，用于测试
package stomptest

import (
	"Vibeshare/internal/pkg/stomp"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type subscription struct {
	id          string
	destination string
}

type serverConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	subs    map[string]subscription
}

func (c *serverConn) write(f *stomp.Frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, f.Encode())
}

// Server 最小化的 STOMP 服务端：记录订阅与 SEND，支持主动推送与断开
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	reject   string
	conns    map[*serverConn]struct{}
	connects []map[string]string
	sent     []*stomp.Frame
}

func NewServer() *Server {
	s := &Server{conns: make(map[*serverConn]struct{})}
	upgrader := websocket.Upgrader{
		Subprotocols: stomp.Subprotocols,
		CheckOrigin:  func(*http.Request) bool { return true },
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.serve(&serverConn{ws: ws, subs: make(map[string]subscription)})
	}))
	return s
}

// Reject 非空时拒绝之后的 CONNECT 并返回 ERROR 帧
func (s *Server) Reject(message string) {
	s.mu.Lock()
	s.reject = message
	s.mu.Unlock()
}

// URL websocket 地址
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

func (s *Server) serve(c *serverConn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.ws.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		frames, err := stomp.Parse(data)
		if err != nil {
			return
		}
		for _, f := range frames {
			switch f.Command {
			case stomp.CmdConnect, stomp.CmdStomp:
				s.mu.Lock()
				s.connects = append(s.connects, f.Headers)
				reject := s.reject
				if reject == "" {
					s.conns[c] = struct{}{}
				}
				s.mu.Unlock()
				if reject != "" {
					c.write(stomp.NewFrame(stomp.CmdError, map[string]string{stomp.HdrMessage: reject}, nil))
					return
				}
				c.write(stomp.NewFrame(stomp.CmdConnected, map[string]string{
					stomp.HdrVersion:   "1.2",
					stomp.HdrHeartBeat: "0,0",
				}, nil))
			case stomp.CmdSubscribe:
				s.mu.Lock()
				c.subs[f.Header(stomp.HdrID)] = subscription{id: f.Header(stomp.HdrID), destination: f.Header(stomp.HdrDestination)}
				s.mu.Unlock()
			case stomp.CmdUnsubscribe:
				s.mu.Lock()
				delete(c.subs, f.Header(stomp.HdrID))
				s.mu.Unlock()
			case stomp.CmdSend:
				s.mu.Lock()
				s.sent = append(s.sent, f)
				s.mu.Unlock()
			case stomp.CmdDisconnect:
				if receipt := f.Header(stomp.HdrReceipt); receipt != "" {
					c.write(stomp.NewFrame(stomp.CmdReceipt, map[string]string{stomp.HdrReceiptID: receipt}, nil))
				}
				return
			}
		}
	}
}

// Publish 向所有订阅了 destination 的连接推送 MESSAGE，返回投递次数
func (s *Server) Publish(destination string, body []byte) int {
	type target struct {
		conn  *serverConn
		subID string
	}
	var targets []target

	s.mu.Lock()
	for c := range s.conns {
		for _, sub := range c.subs {
			if sub.destination == destination {
				targets = append(targets, target{conn: c, subID: sub.id})
			}
		}
	}
	s.mu.Unlock()

	for _, t := range targets {
		t.conn.write(stomp.NewFrame(stomp.CmdMessage, map[string]string{
			stomp.HdrDestination:  destination,
			stomp.HdrSubscription: t.subID,
			stomp.HdrMessageID:    uuid.NewString(),
			stomp.HdrContentType:  "application/json",
		}, body))
	}
	return len(targets)
}

// Subscriptions 当前所有连接上的订阅目的地（排序）
func (s *Server) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []string
	for c := range s.conns {
		for _, sub := range c.subs {
			res = append(res, sub.destination)
		}
	}
	slices.Sort(res)
	return res
}

// Sent 客户端发来的 SEND 帧
func (s *Server) Sent() []*stomp.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

// Connects 每次 CONNECT 的头
func (s *Server) Connects() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.connects)
}

// ConnCount 当前已握手的连接数
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropConnections 服务端主动断开全部连接
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
}

// SubscriptionCount 订阅了 destination 的次数
func (s *Server) SubscriptionCount(destination string) int {
	n := 0
	for _, d := range s.Subscriptions() {
		if d == destination {
			n++
		}
	}
	return n
}
