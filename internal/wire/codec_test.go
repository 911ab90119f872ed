package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeAll decodes every whole message in buf, leaving the tail.
func decodeAll(t *testing.T, decode Decoder, buf []byte) ([]Message, []byte) {
	t.Helper()
	var out []Message
	for {
		msg, n, err := decode(buf)
		if errors.Is(err, ErrIncomplete) {
			require.Zero(t, n)
			return out, buf
		}
		require.NoError(t, err)
		require.Positive(t, n)
		out = append(out, msg)
		buf = buf[n:]
	}
}

// feedInChunks simulates reads split at the given boundaries.
func feedInChunks(t *testing.T, decode Decoder, stream []byte, cuts []int) []Message {
	t.Helper()
	var pending []byte
	var out []Message
	prev := 0
	for _, cut := range append(cuts, len(stream)) {
		pending = append(pending, stream[prev:cut]...)
		prev = cut
		msgs, rest := decodeAll(t, decode, pending)
		out = append(out, msgs...)
		pending = append([]byte(nil), rest...)
	}
	require.Empty(t, pending, "stream should end on a message boundary")
	return out
}

func TestSplitReadsMatchContiguousDecode(t *testing.T) {
	serverStream := [][]byte{
		Encode(Announce{Player: 1, Name: "Alice"}),
		Encode(DealDice{Dice: [6]uint8{1, 2, 3, 4, 5, 6}}),
		Encode(ClaimNotice{Role: RoleActive}),
		Encode(ClaimNotice{Role: RoleWaiting, Count: 3, Face: 4}),
		Encode(RevealResult{Winner: 1, Dice: [6]uint8{6, 6, 6, 1, 1, 1}}),
		Encode(Announce{Player: 0, Name: ""}),
	}
	clientStream := [][]byte{
		Encode(Join{Name: "Bob"}),
		Encode(Start{}),
		Encode(MakeClaim{Count: 12, Face: 6}),
		Encode(ChallengeClaim{}),
		Encode(Join{Name: "žluťoučký kůň 🎲"}),
	}

	cases := []struct {
		name   string
		decode Decoder
		parts  [][]byte
	}{
		{name: "server to client", decode: DecodeServer, parts: serverStream},
		{name: "client to server", decode: DecodeClient, parts: clientStream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stream := bytes.Join(tc.parts, nil)
			whole, rest := decodeAll(t, tc.decode, stream)
			require.Empty(t, rest)
			require.Len(t, whole, len(tc.parts))

			// every single split point
			for i := 0; i <= len(stream); i++ {
				got := feedInChunks(t, tc.decode, stream, []int{i})
				require.Equal(t, whole, got, "split at %d", i)
			}
			// every pair of split points
			for i := 0; i <= len(stream); i++ {
				for j := i; j <= len(stream); j++ {
					got := feedInChunks(t, tc.decode, stream, []int{i, j})
					require.Equal(t, whole, got, "split at %d,%d", i, j)
				}
			}
			// one byte at a time
			cuts := make([]int, 0, len(stream))
			for i := 1; i < len(stream); i++ {
				cuts = append(cuts, i)
			}
			require.Equal(t, whole, feedInChunks(t, tc.decode, stream, cuts))
		})
	}
}

func TestClaimRoundTrip(t *testing.T) {
	for count := uint8(MinCount); count <= MaxCount; count++ {
		for face := uint8(MinFace); face <= MaxFace; face++ {
			msg, n, err := DecodeClient(Encode(MakeClaim{Count: count, Face: face}))
			require.NoError(t, err)
			require.Equal(t, 3, n)
			require.Equal(t, MakeClaim{Count: count, Face: face}, msg)

			for _, role := range []Role{RoleActive, RoleWaiting} {
				notice := ClaimNotice{Role: role, Count: count, Face: face}
				got, n, err := DecodeServer(Encode(notice))
				require.NoError(t, err)
				require.Equal(t, 4, n)
				require.Equal(t, notice, got)
			}
		}
	}
}

func TestNameRoundTrip(t *testing.T) {
	long := bytes.Repeat([]byte{0xe2, 0x98, 0x83}, 70000) // crosses the 2-byte length boundary

	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "ascii", in: "Alice"},
		{name: "non ascii", in: "Łukasz 李 🎲"},
		{name: "raw bytes", in: string([]byte{0x00, 0xff, 0xc3, 0x28})},
		{name: "long", in: string(long)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			join, n, err := DecodeClient(Encode(Join{Name: tc.in}))
			require.NoError(t, err)
			assert.Equal(t, 4+len(tc.in), n)
			assert.Equal(t, Join{Name: tc.in}, join)

			ann, n, err := DecodeServer(Encode(Announce{Player: 7, Name: tc.in}))
			require.NoError(t, err)
			assert.Equal(t, 5+len(tc.in), n)
			assert.Equal(t, Announce{Player: 7, Name: tc.in}, ann)
		})
	}
}

func TestPartialJoinIsIncompleteUntilNameArrives(t *testing.T) {
	full := Encode(Join{Name: "Alice"})
	partial := append([]byte(nil), full[:4+2]...) // tag, length, "Al"
	before := append([]byte(nil), partial...)

	msg, n, err := DecodeClient(partial)
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Nil(t, msg)
	assert.Zero(t, n)
	assert.Equal(t, before, partial, "decoder must not touch the buffer")

	buf := append(partial, full[6:]...)
	msg, n, err = DecodeClient(buf)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
	assert.Equal(t, Join{Name: "Alice"}, msg)
}

func TestIncompletePrefixes(t *testing.T) {
	cases := []struct {
		name   string
		decode Decoder
		msg    Message
	}{
		{name: "join", decode: DecodeClient, msg: Join{Name: "xyz"}},
		{name: "make claim", decode: DecodeClient, msg: MakeClaim{Count: 2, Face: 5}},
		{name: "announce", decode: DecodeServer, msg: Announce{Player: 3, Name: "xyz"}},
		{name: "deal", decode: DecodeServer, msg: DealDice{Dice: [6]uint8{1, 1, 2, 2, 3, 3}}},
		{name: "claim notice", decode: DecodeServer, msg: ClaimNotice{Role: RoleWaiting, Count: 1, Face: 1}},
		{name: "reveal", decode: DecodeServer, msg: RevealResult{Winner: 0, Dice: [6]uint8{4, 4, 4, 4, 4, 4}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			full := Encode(tc.msg)
			for i := 0; i < len(full); i++ {
				_, n, err := tc.decode(full[:i])
				require.ErrorIs(t, err, ErrIncomplete, "prefix %d", i)
				require.Zero(t, n)
			}
		})
	}
}

func TestProtocolViolations(t *testing.T) {
	cases := []struct {
		name   string
		decode Decoder
		buf    []byte
	}{
		{name: "unknown client tag", decode: DecodeClient, buf: []byte{'b', 1, 2, 3, 4}},
		{name: "server tag sent by client", decode: DecodeClient, buf: []byte{'n', 0, 0, 0, 0}},
		{name: "claim face zero", decode: DecodeClient, buf: []byte{'c', 3, 0}},
		{name: "claim count thirteen", decode: DecodeClient, buf: []byte{'c', 13, 2}},
		{name: "unknown server tag", decode: DecodeServer, buf: []byte{'m', 0, 0, 1, 'x'}},
		{name: "client tag sent by server", decode: DecodeServer, buf: []byte{'j', 0, 0, 0}},
		{name: "bad role", decode: DecodeServer, buf: []byte{'c', 'x', 1, 1}},
		{name: "half empty claim", decode: DecodeServer, buf: []byte{'c', 'a', 0, 3}},
		{name: "dealt seven", decode: DecodeServer, buf: []byte{'d', 1, 2, 3, 4, 5, 7}},
		{name: "revealed zero", decode: DecodeServer, buf: []byte{'r', 1, 0, 2, 3, 4, 5, 6}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, n, err := tc.decode(tc.buf)
			require.ErrorIs(t, err, ErrProtocolViolation)
			assert.Nil(t, msg)
			assert.Zero(t, n)
		})
	}
}

func TestEncodeRangeViolationPanics(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{name: "claim face seven", msg: MakeClaim{Count: 1, Face: 7}},
		{name: "claim count zero", msg: MakeClaim{Count: 0, Face: 1}},
		{name: "claim count thirteen", msg: MakeClaim{Count: 13, Face: 1}},
		{name: "notice role", msg: ClaimNotice{Role: 'x', Count: 1, Face: 1}},
		{name: "notice half empty", msg: ClaimNotice{Role: RoleActive, Count: 2}},
		{name: "deal zero", msg: DealDice{}},
		{name: "reveal seven", msg: RevealResult{Dice: [6]uint8{7, 1, 1, 1, 1, 1}}},
		{name: "unknown message", msg: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Panics(t, func() { Encode(tc.msg) })
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	assert.Equal(t, []byte{'j', 0, 0, 3, 'B', 'o', 'b'}, Encode(Join{Name: "Bob"}))
	assert.Equal(t, []byte{'s'}, Encode(Start{}))
	assert.Equal(t, []byte{'c', 3, 4}, Encode(MakeClaim{Count: 3, Face: 4}))
	assert.Equal(t, []byte{'r'}, Encode(ChallengeClaim{}))
	assert.Equal(t, []byte{'n', 1, 0, 0, 2, 'A', 'l'}, Encode(Announce{Player: 1, Name: "Al"}))
	assert.Equal(t, []byte{'d', 1, 2, 3, 4, 5, 6}, Encode(DealDice{Dice: [6]uint8{1, 2, 3, 4, 5, 6}}))
	assert.Equal(t, []byte{'c', 'a', 0, 0}, Encode(ClaimNotice{Role: RoleActive}))
	assert.Equal(t, []byte{'r', 1, 6, 5, 4, 3, 2, 1}, Encode(RevealResult{Winner: 1, Dice: [6]uint8{6, 5, 4, 3, 2, 1}}))
}
