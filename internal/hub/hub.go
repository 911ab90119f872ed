// Package hub moves bytes between network connections and the lobby. It
// never decodes anything itself.
package hub

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/lobby"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	readBufSize  = 4096
	writeTimeout = 5 * time.Second
)

type HubMsg interface{ isHubMsg() }

type Register struct {
	ID   string
	Conn net.Conn
}

type Unregister struct{ ID string }

type CountConns struct{ Reply chan int }

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (CountConns) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox      chan HubMsg
	conns      map[string]net.Conn
	lobby      *lobby.Lobby
	log        *zap.Logger
	outboxSize int
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(parent context.Context, lb *lobby.Lobby, log *zap.Logger, outboxSize int) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:      make(chan HubMsg, 64),
		conns:      make(map[string]net.Conn),
		lobby:      lb,
		log:        log,
		outboxSize: outboxSize,
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				h.conns[msg.ID] = msg.Conn

			case Unregister:
				if c, ok := h.conns[msg.ID]; ok {
					_ = c.Close()
					delete(h.conns, msg.ID)
				}

			case CountConns:
				msg.Reply <- len(h.conns)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.conns {
		_ = c.Close()
		delete(h.conns, id)
	}
	h.cancel()
}

func (h *Hub) send(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

// Serve accepts connections until ln fails or the hub stops.
func (h *Hub) Serve(ln net.Listener) error {
	go func() {
		<-h.ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if h.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go h.Attach(h.ctx, conn)
	}
}

// Attach pumps conn until it fails, the lobby drops it, or ctx ends. It
// blocks for the life of the connection and always closes conn.
func (h *Hub) Attach(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	log := h.log.With(zap.String("client", id), zap.String("remote", conn.RemoteAddr().String()))

	if h.ctx.Err() != nil {
		_ = conn.Close()
		return
	}
	h.send(Register{ID: id, Conn: conn})
	defer h.send(Unregister{ID: id})

	out := make(chan []byte, h.outboxSize)
	if !h.lobby.Send(ctx, lobby.Join{ClientID: id, Outbox: out}) {
		_ = conn.Close()
		return
	}
	log.Info("connection attached")

	// Writer goroutine
	written := make(chan struct{})
	go func() {
		defer close(written)
		for b := range out {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := conn.Write(b); err != nil {
				log.Debug("write failed", zap.Error(err))
				break
			}
		}
		// the lobby closed our outbox, or the peer stopped reading
		_ = conn.Close()
	}()

	// Reader loop
	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !h.lobby.Send(ctx, lobby.FromClient{ClientID: id, Data: data}) {
				break
			}
		}
		if err != nil {
			log.Debug("read ended", zap.Error(err))
			break
		}
	}

	_ = conn.Close()
	h.lobby.Send(ctx, lobby.Leave{ClientID: id})
	select {
	case <-written:
	case <-ctx.Done():
	case <-h.lobby.Done():
	}
	log.Info("connection detached")
}

// Conns reports how many connections are attached.
func (h *Hub) Conns(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.inbox <- CountConns{Reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
