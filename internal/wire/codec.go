package wire

import (
	"errors"
	"fmt"
)

// ErrIncomplete means the buffer does not yet hold a whole message. It is
// not a failure: nothing was consumed and the caller retries once more
// bytes have arrived.
var ErrIncomplete = errors.New("incomplete message")

// ErrProtocolViolation means the peer sent bytes that can never become a
// valid message. The connection must be closed.
var ErrProtocolViolation = errors.New("protocol violation")

// Decoder decodes at most one message from the front of buf and reports how
// many bytes it used. On any error the returned length is zero.
type Decoder func(buf []byte) (Message, int, error)

// Encode returns the wire form of m.
func Encode(m Message) []byte {
	return Append(nil, m)
}

// Append appends the wire form of m to dst. Field values outside their
// domain are a programming error and panic; nothing is clamped.
func Append(dst []byte, m Message) []byte {
	switch msg := m.(type) {
	case Join:
		return appendName(append(dst, TagJoin), msg.Name)

	case Start:
		return append(dst, TagStart)

	case MakeClaim:
		invariant(validClaim(msg.Count, msg.Face), "claim %d x %d", msg.Count, msg.Face)
		return append(dst, TagClaim, msg.Count, msg.Face)

	case ChallengeClaim:
		return append(dst, TagReveal)

	case Announce:
		return appendName(append(dst, TagAnnounce, msg.Player), msg.Name)

	case DealDice:
		invariant(validHand(msg.Dice[:]), "hand %v", msg.Dice)
		dst = append(dst, TagDeal)
		return append(dst, msg.Dice[:]...)

	case ClaimNotice:
		invariant(validRole(msg.Role), "role %q", byte(msg.Role))
		invariant(validNoticeClaim(msg.Count, msg.Face), "claim %d x %d", msg.Count, msg.Face)
		return append(dst, TagClaim, byte(msg.Role), msg.Count, msg.Face)

	case RevealResult:
		invariant(validHand(msg.Dice[:]), "hand %v", msg.Dice)
		dst = append(dst, TagReveal, msg.Winner)
		return append(dst, msg.Dice[:]...)

	default:
		panic(fmt.Sprintf("wire: cannot encode %T", m))
	}
}

// DecodeClient decodes one client -> server message.
func DecodeClient(buf []byte) (Message, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}

	switch buf[0] {
	case TagJoin:
		name, n, err := readName(buf[1:])
		if err != nil {
			return nil, 0, err
		}
		return Join{Name: name}, 1 + n, nil

	case TagStart:
		return Start{}, 1, nil

	case TagClaim:
		if len(buf) < 3 {
			return nil, 0, ErrIncomplete
		}
		count, face := buf[1], buf[2]
		if !validClaim(count, face) {
			return nil, 0, violation("claim %d x %d out of range", count, face)
		}
		return MakeClaim{Count: count, Face: face}, 3, nil

	case TagReveal:
		return ChallengeClaim{}, 1, nil

	default:
		return nil, 0, violation("unknown client tag 0x%02x", buf[0])
	}
}

// DecodeServer decodes one server -> client message.
func DecodeServer(buf []byte) (Message, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}

	switch buf[0] {
	case TagAnnounce:
		if len(buf) < 2 {
			return nil, 0, ErrIncomplete
		}
		name, n, err := readName(buf[2:])
		if err != nil {
			return nil, 0, err
		}
		return Announce{Player: buf[1], Name: name}, 2 + n, nil

	case TagDeal:
		if len(buf) < 1+HandSize {
			return nil, 0, ErrIncomplete
		}
		var msg DealDice
		copy(msg.Dice[:], buf[1:1+HandSize])
		if !validHand(msg.Dice[:]) {
			return nil, 0, violation("dealt hand %v out of range", msg.Dice)
		}
		return msg, 1 + HandSize, nil

	case TagClaim:
		if len(buf) < 4 {
			return nil, 0, ErrIncomplete
		}
		msg := ClaimNotice{Role: Role(buf[1]), Count: buf[2], Face: buf[3]}
		if !validRole(msg.Role) {
			return nil, 0, violation("unknown role 0x%02x", buf[1])
		}
		if !validNoticeClaim(msg.Count, msg.Face) {
			return nil, 0, violation("claim %d x %d out of range", msg.Count, msg.Face)
		}
		return msg, 4, nil

	case TagReveal:
		if len(buf) < 2+HandSize {
			return nil, 0, ErrIncomplete
		}
		msg := RevealResult{Winner: buf[1]}
		copy(msg.Dice[:], buf[2:2+HandSize])
		if !validHand(msg.Dice[:]) {
			return nil, 0, violation("revealed hand %v out of range", msg.Dice)
		}
		return msg, 2 + HandSize, nil

	default:
		return nil, 0, violation("unknown server tag 0x%02x", buf[0])
	}
}

func appendName(dst []byte, name string) []byte {
	invariant(len(name) <= MaxNameLen, "name length %d", len(name))
	n := len(name)
	dst = append(dst, byte(n>>16), byte(n>>8), byte(n))
	return append(dst, name...)
}

// readName reads a 3-byte length prefix and that many name bytes.
func readName(buf []byte) (string, int, error) {
	if len(buf) < 3 {
		return "", 0, ErrIncomplete
	}
	n := int(buf[0])<<16 | int(buf[1])<<8 | int(buf[2])
	if len(buf) < 3+n {
		return "", 0, ErrIncomplete
	}
	return string(buf[3 : 3+n]), 3 + n, nil
}

func validClaim(count, face uint8) bool {
	return count >= MinCount && count <= MaxCount && face >= MinFace && face <= MaxFace
}

func validNoticeClaim(count, face uint8) bool {
	return (count == 0 && face == 0) || validClaim(count, face)
}

func validHand(dice []uint8) bool {
	for _, d := range dice {
		if d < MinFace || d > MaxFace {
			return false
		}
	}
	return true
}

func validRole(r Role) bool {
	return r == RoleActive || r == RoleWaiting
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("wire: range violation: " + fmt.Sprintf(format, args...))
	}
}
