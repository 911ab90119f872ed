// Package client runs the player's side of a session: once per frame it
// takes whatever the server sent, applies the user's intents, flushes
// outbound bytes, and redraws if anything changed.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/connbuf"
	"github.com/DoyleJ11/liars-dice/internal/projector"
	"github.com/DoyleJ11/liars-dice/internal/wire"
	"go.uber.org/zap"
)

// ErrTransportLoss means the server connection is gone. The client cannot
// continue without it.
var ErrTransportLoss = errors.New("lost connection")

const (
	readBufSize  = 4096
	writeTimeout = 2 * time.Second
)

// Presenter shows views and reports the user's intents.
type Presenter interface {
	Present(projector.View)
	Intents() <-chan projector.Intent
}

type Client struct {
	conn  net.Conn
	proj  *projector.Projector
	ui    Presenter
	buf   *connbuf.Buffer
	frame time.Duration
	log   *zap.Logger

	shown int
}

func New(conn net.Conn, proj *projector.Projector, join wire.Message, ui Presenter, frame time.Duration, log *zap.Logger) *Client {
	buf := connbuf.New(wire.DecodeServer)
	buf.Send(join)
	return &Client{conn: conn, proj: proj, ui: ui, buf: buf, frame: frame, log: log, shown: -1}
}

// Run drives frames until the player acknowledges the result, ctx ends, or
// the connection fails. It closes the connection before returning.
func (c *Client) Run(ctx context.Context) error {
	defer c.conn.Close()

	in := make(chan []byte, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go c.read(in, readErr, done)

	t := time.NewTicker(c.frame)
	defer t.Stop()

	if err := c.step(in, readErr); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := c.step(in, readErr); err != nil {
				return err
			}
			if c.proj.Done() {
				return nil
			}
		}
	}
}

func (c *Client) read(in chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	defer close(in)
	buf := make([]byte, readBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case in <- data:
			case <-done:
				return
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

// step is one frame. It never blocks on the network except for a bounded
// write.
func (c *Client) step(in <-chan []byte, readErr <-chan error) error {
	lost := false
drain:
	for {
		select {
		case b, ok := <-in:
			if !ok {
				lost = true
				break drain
			}
			if err := c.buf.Feed(b); err != nil {
				return err
			}
		default:
			break drain
		}
	}

	for {
		msg, ok, err := c.buf.TryTake()
		if err != nil {
			return fmt.Errorf("server sent bad bytes: %w", err)
		}
		if !ok {
			break
		}
		if err := c.proj.Receive(msg); err != nil {
			return err
		}
	}
	if lost {
		return fmt.Errorf("%w: %v", ErrTransportLoss, <-readErr)
	}

intents:
	for {
		select {
		case intent := <-c.ui.Intents():
			out, err := c.proj.Handle(intent)
			if err != nil {
				c.log.Debug("intent refused", zap.String("phase", c.proj.Phase().String()), zap.Error(err))
				continue
			}
			for _, m := range out {
				c.buf.Send(m)
			}
		default:
			break intents
		}
	}

	if len(c.buf.Pending()) > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.buf.WriteTo(c.conn); err != nil {
			return fmt.Errorf("%w: %v", ErrTransportLoss, err)
		}
	}

	if v := c.proj.Version(); v != c.shown {
		c.shown = v
		c.ui.Present(c.proj.View())
	}
	return nil
}
