package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/projector"
	"github.com/DoyleJ11/liars-dice/internal/wire"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUI struct {
	views   chan projector.View
	intents chan projector.Intent
}

func newFakeUI() *fakeUI {
	return &fakeUI{views: make(chan projector.View, 64), intents: make(chan projector.Intent, 8)}
}

func (f *fakeUI) Present(v projector.View) {
	select {
	case f.views <- v:
	default:
	}
}

func (f *fakeUI) Intents() <-chan projector.Intent { return f.intents }

func waitView[V projector.View](t *testing.T, ui *fakeUI) V {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case v := <-ui.views:
			if want, ok := v.(V); ok {
				return want
			}
		case <-deadline:
			var zero V
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// readFrom decodes exactly one client message from the server end.
func readFrom(t *testing.T, conn net.Conn) wire.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var buf []byte
	chunk := make([]byte, 64)
	for {
		msg, _, err := wire.DecodeClient(buf)
		if err == nil {
			return msg
		}
		require.ErrorIs(t, err, wire.ErrIncomplete)
		n, err := conn.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)
	}
}

func writeTo(t *testing.T, conn net.Conn, msgs ...wire.Message) {
	t.Helper()
	var b []byte
	for _, m := range msgs {
		b = wire.Append(b, m)
	}
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(time.Second)))
	_, err := conn.Write(b)
	require.NoError(t, err)
}

func start(t *testing.T) (*fakeUI, net.Conn, chan error) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	t.Cleanup(func() { serverEnd.Close() })

	ui := newFakeUI()
	proj, join := projector.New("Alice")
	c := New(clientEnd, proj, join, ui, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Equal(t, wire.Join{Name: "Alice"}, readFrom(t, serverEnd))
	return ui, serverEnd, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestClient_PlaysThroughToAcknowledge(t *testing.T) {
	ui, server, done := start(t)
	waitView[projector.ShowLobby](t, ui)

	hand := [6]uint8{1, 2, 3, 4, 5, 6}
	writeTo(t, server,
		wire.Announce{Player: 0, Name: "Bob"},
		wire.DealDice{Dice: hand},
		wire.ClaimNotice{Role: wire.RoleActive},
	)
	v := waitView[projector.ShowMakeClaim](t, ui)
	require.Equal(t, hand, v.Hand)

	ui.intents <- projector.SubmitClaim{Count: 2, Face: 5}
	require.Equal(t, wire.MakeClaim{Count: 2, Face: 5}, readFrom(t, server))

	writeTo(t, server, wire.RevealResult{Winner: 0, Dice: [6]uint8{5, 5, 5, 5, 5, 5}})
	reveal := waitView[projector.ShowReveal](t, ui)
	require.True(t, reveal.Won)

	ui.intents <- projector.Acknowledge{}
	require.NoError(t, waitRun(t, done))
}

func TestClient_ServerCloseIsTransportLoss(t *testing.T) {
	_, server, done := start(t)
	require.NoError(t, server.Close())
	require.ErrorIs(t, waitRun(t, done), ErrTransportLoss)
}

func TestClient_BadServerBytesAreFatal(t *testing.T) {
	_, server, done := start(t)
	require.NoError(t, server.SetWriteDeadline(time.Now().Add(time.Second)))
	_, err := server.Write([]byte{'j'}) // a client-only tag
	require.NoError(t, err)

	err = waitRun(t, done)
	require.ErrorIs(t, err, wire.ErrProtocolViolation)
	require.NotErrorIs(t, err, ErrTransportLoss)
}

func TestClient_ContextCancel(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()
	defer serverEnd.Close()
	go func() {
		// swallow the Join
		_, _ = serverEnd.Read(make([]byte, 64))
	}()

	proj, join := projector.New("Alice")
	ctx, cancel := context.WithCancel(context.Background())
	c := New(clientEnd, proj, join, newFakeUI(), 5*time.Millisecond, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	require.ErrorIs(t, waitRun(t, done), context.Canceled)
}
