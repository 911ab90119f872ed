package tui

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/liars-dice/internal/projector"
	"github.com/nsf/termbox-go"
)

type Key int

const (
	KeyOther Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEsc
)

func keyOf(ev termbox.Event) Key {
	switch ev.Key {
	case termbox.KeyArrowUp:
		return KeyUp
	case termbox.KeyArrowDown:
		return KeyDown
	case termbox.KeyArrowLeft:
		return KeyLeft
	case termbox.KeyArrowRight:
		return KeyRight
	case termbox.KeyEnter:
		return KeyEnter
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return KeyEsc
	}
	switch ev.Ch {
	case 'k':
		return KeyUp
	case 'j':
		return KeyDown
	case 'h':
		return KeyLeft
	case 'l':
		return KeyRight
	case 'q':
		return KeyEsc
	}
	return KeyOther
}

// Focus is the highlighted control: count or face while composing,
// reveal or continue while responding, quit or play again after a reveal.
type Focus int

// MapKey turns a key press into at most one intent. It returns the new
// focus and whether the user asked to quit.
func MapKey(v projector.View, focus Focus, k Key) (projector.Intent, Focus, bool) {
	if k == KeyEsc {
		return nil, focus, true
	}

	switch view := v.(type) {
	case projector.ShowLobby:
		if k == KeyEnter {
			return projector.Start{}, 0, false
		}

	case projector.ShowMakeClaim:
		switch k {
		case KeyLeft, KeyRight:
			return nil, 1 - focus, false
		case KeyUp:
			return projector.Adjust{Axis: axisOf(focus), Delta: 1}, focus, false
		case KeyDown:
			return projector.Adjust{Axis: axisOf(focus), Delta: -1}, focus, false
		case KeyEnter:
			return projector.SubmitClaim{Count: view.Count, Face: view.Face}, 0, false
		}

	case projector.ShowRespondClaim:
		switch k {
		case KeyLeft, KeyRight:
			return nil, 1 - focus, false
		case KeyEnter:
			if focus == 0 {
				return projector.Challenge{}, 0, false
			}
			return projector.Continue{}, 0, false
		}

	case projector.ShowReveal:
		switch k {
		case KeyLeft, KeyRight:
			return nil, 1 - focus, false
		case KeyEnter:
			if focus == 0 {
				return projector.Acknowledge{}, 0, false
			}
			return projector.Start{}, 0, false
		}
	}
	return nil, focus, false
}

func axisOf(f Focus) projector.Axis {
	if f == 1 {
		return projector.AxisFace
	}
	return projector.AxisCount
}

// Lines renders v as plain text, one string per screen row.
func Lines(v projector.View, focus Focus) []string {
	switch view := v.(type) {
	case projector.ShowLobby:
		lines := []string{"Liar's Dice", "", "Players:", "  " + view.Self + " (you)"}
		for _, name := range view.Roster {
			lines = append(lines, "  "+name)
		}
		if view.Sent {
			return append(lines, "", "starting, waiting for the server")
		}
		return append(lines, "", "[Enter] start   [Esc] quit")

	case projector.ShowMakeClaim:
		current := "no claim yet"
		if view.Current.Count != 0 {
			current = claimText(view.Current.Count, view.Current.Face)
		}
		lines := []string{
			"Your dice: " + diceText(view.Hand),
			"Current claim: " + current,
			"",
			"Your claim: " + choice(fmt.Sprintf("%d x", view.Count), focus == 0) + " " + choice(fmt.Sprint(view.Face), focus == 1),
		}
		if view.Sent {
			return append(lines, "", "sent, waiting for the server")
		}
		return append(lines, "", "[Up/Down] change   [Left/Right] move   [Enter] claim")

	case projector.ShowRespondClaim:
		lines := []string{
			"Your dice: " + diceText(view.Hand),
			"Opponent claims: " + claimText(view.Count, view.Face),
			"",
			choice("Liar!", focus == 0) + "   " + choice("Raise", focus == 1),
		}
		if view.Sent {
			lines = append(lines, "", "sent, waiting for the server")
		}
		return lines

	case projector.ShowWaiting:
		lines := []string{"Your dice: " + diceText(view.Hand)}
		if view.Current.Count != 0 {
			lines = append(lines, "Current claim: "+claimText(view.Current.Count, view.Current.Face))
		}
		return append(lines, "", "Waiting for your opponent...")

	case projector.ShowReveal:
		title := "You lose."
		if view.Won {
			title = "You win!"
		}
		lines := []string{title, ""}
		for _, row := range view.Rows {
			tag := "lose"
			if row.Won {
				tag = "win"
			}
			lines = append(lines, fmt.Sprintf("%-16s %s  %s", row.Name, diceText(row.Dice), tag))
		}
		return append(lines, "", choice("Quit", focus == 0)+"   "+choice("Play again", focus == 1))
	}
	return nil
}

func claimText(count, face uint8) string {
	return fmt.Sprintf("at least %d dice showing %d", count, face)
}

func diceText(hand [6]uint8) string {
	parts := make([]string, len(hand))
	for i, d := range hand {
		parts[i] = fmt.Sprintf("[%d]", d)
	}
	return strings.Join(parts, " ")
}

func choice(s string, focused bool) string {
	if focused {
		return "> " + s + " <"
	}
	return "  " + s + "  "
}
