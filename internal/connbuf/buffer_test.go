package connbuf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/liars-dice/internal/wire"
)

func takeAll(t *testing.T, b *Buffer) []wire.Message {
	t.Helper()
	var out []wire.Message
	for {
		msg, ok, err := b.TryTake()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

func TestTryTake_SeveralMessagesInOneRead(t *testing.T) {
	b := New(wire.DecodeClient)
	stream := bytes.Join([][]byte{
		wire.Encode(wire.Join{Name: "Alice"}),
		wire.Encode(wire.Start{}),
		wire.Encode(wire.MakeClaim{Count: 3, Face: 4}),
	}, nil)

	require.NoError(t, b.Feed(stream))
	got := takeAll(t, b)

	require.Equal(t, []wire.Message{
		wire.Join{Name: "Alice"},
		wire.Start{},
		wire.MakeClaim{Count: 3, Face: 4},
	}, got)
	assert.Zero(t, b.Buffered())
}

func TestTryTake_PartialJoinLeavesBufferUntouched(t *testing.T) {
	b := New(wire.DecodeClient)
	full := wire.Encode(wire.Join{Name: "Alice"})

	require.NoError(t, b.Feed(full[:6])) // tag + length + "Al"
	msg, ok, err := b.TryTake()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
	assert.Equal(t, 6, b.Buffered())

	require.NoError(t, b.Feed(full[6:]))
	assert.Equal(t, []wire.Message{wire.Join{Name: "Alice"}}, takeAll(t, b))
}

func TestTryTake_ByteAtATime(t *testing.T) {
	b := New(wire.DecodeServer)
	msgs := []wire.Message{
		wire.Announce{Player: 1, Name: "Bob"},
		wire.DealDice{Dice: [6]uint8{6, 5, 4, 3, 2, 1}},
		wire.ClaimNotice{Role: wire.RoleActive},
		wire.RevealResult{Winner: 1, Dice: [6]uint8{2, 2, 2, 2, 2, 2}},
	}
	var stream []byte
	for _, m := range msgs {
		stream = wire.Append(stream, m)
	}

	var got []wire.Message
	for _, c := range stream {
		require.NoError(t, b.Feed([]byte{c}))
		got = append(got, takeAll(t, b)...)
	}
	assert.Equal(t, msgs, got)
}

func TestTryTake_UnknownTagIsViolation(t *testing.T) {
	b := New(wire.DecodeClient)
	require.NoError(t, b.Feed([]byte{'s', 'x'}))

	msg, ok, err := b.TryTake()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.Start{}, msg)

	_, ok, err = b.TryTake()
	assert.False(t, ok)
	assert.ErrorIs(t, err, wire.ErrProtocolViolation)
}

func TestFeed_LimitIsViolation(t *testing.T) {
	b := New(wire.DecodeClient).WithLimit(8)
	// a join that announces a long name and never finishes it
	require.NoError(t, b.Feed([]byte{'j', 0, 1, 0}))
	err := b.Feed(bytes.Repeat([]byte{'x'}, 16))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.ErrorIs(t, err, wire.ErrProtocolViolation)
}

func TestFeed_CompactsConsumedPrefix(t *testing.T) {
	b := New(wire.DecodeClient)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Feed([]byte{'s', 's'}))
		msg, ok, err := b.TryTake()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, wire.Start{}, msg)
	}
	assert.Equal(t, 100, b.Buffered())
	assert.LessOrEqual(t, len(b.in), 2*b.Buffered()+2)

	takeAll(t, b)
	assert.Zero(t, b.Buffered())
	assert.Empty(t, b.in)
}

type shortWriter struct {
	bytes.Buffer
	max int
}

var errShort = errors.New("short write")

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		n, _ := w.Buffer.Write(p[:w.max])
		return n, errShort
	}
	return w.Buffer.Write(p)
}

func TestOutbound_WriteToKeepsUnwrittenBytes(t *testing.T) {
	b := New(wire.DecodeClient)
	b.Send(wire.ClaimNotice{Role: wire.RoleWaiting, Count: 2, Face: 3})
	b.Send(wire.DealDice{Dice: [6]uint8{1, 1, 1, 1, 1, 1}})
	want := append(wire.Encode(wire.ClaimNotice{Role: wire.RoleWaiting, Count: 2, Face: 3}),
		wire.Encode(wire.DealDice{Dice: [6]uint8{1, 1, 1, 1, 1, 1}})...)
	require.Equal(t, want, b.Pending())

	w := &shortWriter{max: 5}
	n, err := b.WriteTo(w)
	assert.ErrorIs(t, err, errShort)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, want[5:], b.Pending())

	w.max = 100
	n, err = b.WriteTo(w)
	require.NoError(t, err)
	assert.EqualValues(t, len(want)-5, n)
	assert.Empty(t, b.Pending())
	assert.Equal(t, want, w.Bytes())
}

func TestOutbound_Drain(t *testing.T) {
	b := New(wire.DecodeServer)
	assert.Nil(t, b.Drain())
	b.Send(wire.Start{})
	b.Send(wire.ChallengeClaim{})
	assert.Equal(t, []byte{'s', 'r'}, b.Drain())
	assert.Nil(t, b.Drain())
}
