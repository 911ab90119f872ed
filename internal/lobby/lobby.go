package lobby

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/connbuf"
	"github.com/DoyleJ11/liars-dice/internal/dice"
	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/DoyleJ11/liars-dice/internal/ledger"
	"github.com/DoyleJ11/liars-dice/internal/metrics"
	"github.com/DoyleJ11/liars-dice/internal/wire"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

// FromClient carries raw bytes read from a connection.
type FromClient struct {
	ClientID string
	Data     []byte
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan []byte // encoded server messages, one chunk per tick
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// Tick runs one tick by hand. Used when the ticker is disabled.
type Tick struct{}

func (Tick) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	Seed       int64
	State      engine.State
}

type client struct {
	id     string
	player engine.PlayerID
	buf    *connbuf.Buffer
	outbox chan []byte
}

type Lobby struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]*client
	nextID  engine.PlayerID

	tick     time.Duration
	limit    int
	log      *zap.Logger
	roller   *dice.Roller
	recorder ledger.Recorder
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Lobby)

// WithTick sets the tick period. Zero disables the ticker; ticks then only
// happen on a Tick message.
func WithTick(d time.Duration) Option { return func(l *Lobby) { l.tick = d } }

func WithLogger(log *zap.Logger) Option { return func(l *Lobby) { l.log = log } }

func WithRoller(r *dice.Roller) Option { return func(l *Lobby) { l.roller = r } }

func WithRecorder(r ledger.Recorder) Option { return func(l *Lobby) { l.recorder = r } }

func WithMetrics(m *metrics.Metrics) Option { return func(l *Lobby) { l.metrics = m } }

// WithInboundLimit caps unconsumed bytes per connection.
func WithInboundLimit(n int) Option { return func(l *Lobby) { l.limit = n } }

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:    make(chan Msg, 64), // Small buffer
		state:    initial,
		version:  0,
		clients:  make(map[string]*client),
		limit:    4 + wire.MaxNameLen,
		log:      zap.NewNop(),
		recorder: ledger.Nop{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.roller == nil {
		seed, err := dice.NewSeed()
		if err != nil {
			seed = time.Now().UnixNano()
		}
		l.roller = dice.NewRoller(seed)
	}
	if l.metrics == nil {
		l.metrics = metrics.New(nil)
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	var ticks <-chan time.Time
	if l.tick > 0 {
		t := time.NewTicker(l.tick)
		defer t.Stop()
		ticks = t.C
	}

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-ticks:
			l.runTick()

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)

			case Leave:
				if c, ok := l.clients[msg.ClientID]; ok {
					l.log.Info("client left", zap.String("client", c.id), zap.Uint8("player", uint8(c.player)))
					l.remove(c)
				}

			case FromClient:
				if c, ok := l.clients[msg.ClientID]; ok {
					l.receive(c, msg.Data)
				}

			case Tick:
				l.runTick()

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Seed:       l.roller.Seed(),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) {
	id, ok := l.freeID()
	if !ok {
		l.log.Warn("no free player id, refusing client", zap.String("client", msg.ClientID))
		close(msg.Outbox)
		return
	}
	_, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdConnect, Player: id})
	if err != nil {
		l.log.Error("connect", zap.String("client", msg.ClientID), zap.Error(err))
		close(msg.Outbox)
		return
	}
	l.commit(newState, nil)

	l.clients[msg.ClientID] = &client{
		id:     msg.ClientID,
		player: id,
		buf:    connbuf.New(wire.DecodeClient).WithLimit(l.limit),
		outbox: msg.Outbox,
	}
	l.metrics.Connections.Inc()
	l.log.Info("client connected", zap.String("client", msg.ClientID), zap.Uint8("player", uint8(id)))
}

// freeID hands out ids round-robin, skipping ids still in use.
func (l *Lobby) freeID() (engine.PlayerID, bool) {
	for range 256 {
		id := l.nextID
		l.nextID++
		if !l.state.Connected(id) {
			return id, true
		}
	}
	return 0, false
}

// receive applies every whole message buffered for c. A violation closes
// c and nothing after it in the batch is applied.
func (l *Lobby) receive(c *client, data []byte) {
	if err := c.buf.Feed(data); err != nil {
		l.violation(c, err)
		return
	}
	for {
		msg, ok, err := c.buf.TryTake()
		if err != nil {
			l.violation(c, err)
			return
		}
		if !ok {
			return
		}
		l.metrics.Messages.WithLabelValues(string(msg.Tag())).Inc()

		cmd := l.command(c.player, msg)
		events, newState, err := engine.Apply(l.state, cmd)
		if engine.Ignorable(err) {
			l.log.Debug("start ignored", zap.Uint8("player", uint8(c.player)), zap.Error(err))
			continue
		}
		if err != nil {
			l.violation(c, err)
			return
		}
		l.commit(newState, events)
		l.log.Debug("applied", zap.Uint8("player", uint8(c.player)), zap.String("cmd", string(cmd.Type)))
	}
}

func (l *Lobby) command(player engine.PlayerID, msg wire.Message) engine.Command {
	switch m := msg.(type) {
	case wire.Join:
		return engine.Command{Type: engine.CmdJoin, Player: player, Name: m.Name}
	case wire.Start:
		return engine.Command{Type: engine.CmdStart, Player: player, Hands: l.deal()}
	case wire.MakeClaim:
		return engine.Command{Type: engine.CmdMakeClaim, Player: player, Claim: engine.Claim{Count: m.Count, Face: m.Face}}
	case wire.ChallengeClaim:
		return engine.Command{Type: engine.CmdChallenge, Player: player}
	default:
		// DecodeClient never yields server messages
		return engine.Command{Type: engine.CommandType(m.Tag()), Player: player}
	}
}

// deal draws a hand per roster player, in roster order, only when a round
// can actually start.
func (l *Lobby) deal() map[engine.PlayerID]engine.Hand {
	if len(l.state.Roster) < engine.SeatCount {
		return nil
	}
	if l.state.Phase != engine.PhaseWaiting && l.state.Phase != engine.PhaseReveal {
		return nil
	}
	hands := make(map[engine.PlayerID]engine.Hand, len(l.state.Roster))
	for _, id := range l.state.Roster {
		hands[id] = l.roller.Hand()
	}
	return hands
}

func (l *Lobby) violation(c *client, err error) {
	l.log.Warn("protocol violation, closing connection",
		zap.String("client", c.id),
		zap.Uint8("player", uint8(c.player)),
		zap.Error(err),
	)
	l.metrics.Violations.WithLabelValues(reason(err)).Inc()
	l.remove(c)
}

// reasons keeps the violation label set fixed whatever the error text.
var reasons = []struct {
	err   error
	label string
}{
	{wire.ErrProtocolViolation, "malformed"},
	{engine.ErrWrongTurn, "wrong_turn"},
	{engine.ErrWrongPhase, "wrong_phase"},
	{engine.ErrNoClaim, "no_claim"},
	{engine.ErrClaimOutOfRange, "claim_out_of_range"},
	{engine.ErrClaimNotRaised, "claim_not_raised"},
	{engine.ErrAlreadyJoined, "already_joined"},
	{engine.ErrTableFull, "table_full"},
	{engine.ErrNameTooLong, "name_too_long"},
	{engine.ErrNotJoined, "not_joined"},
}

func reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}

// remove closes c's outbox and takes its player off the table.
func (l *Lobby) remove(c *client) {
	close(c.outbox)
	delete(l.clients, c.id)
	l.metrics.Connections.Dec()

	events, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdLeave, Player: c.player})
	if err != nil {
		l.log.Error("leave", zap.Uint8("player", uint8(c.player)), zap.Error(err))
		return
	}
	l.commit(newState, events)
}

func (l *Lobby) commit(newState engine.State, events []engine.Event) {
	prev := l.state
	l.state = newState
	l.version++

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtRoundResolved, engine.EvtRoundForfeited:
			l.finished(prev, newState, ev)
		case engine.EvtRoundStarted:
			l.log.Info("round started", zap.Int("round", newState.Round), zap.Strings("players", newState.RosterNames()))
		case engine.EvtRoundCancelled:
			l.log.Info("round cancelled before the deal", zap.Int("round", prev.Round), zap.Uint8("left", uint8(ev.Player)))
		}
	}
}

func (l *Lobby) finished(prev, next engine.State, ev engine.Event) {
	s := next
	// the table emptied in the same step; report the round as it stood
	if s.Phase != engine.PhaseReveal {
		s = prev
		s.Winner = ev.Winner
		s.Challenger = ev.Player
		s.Outcome = ev.Outcome
	}
	l.metrics.Rounds.WithLabelValues(string(ev.Outcome)).Inc()
	l.recorder.Record(ledger.FromState(s, l.roller.Seed(), time.Now()))
	l.log.Info("round over",
		zap.Int("round", s.Round),
		zap.Uint8("winner", uint8(ev.Winner)),
		zap.String("outcome", string(ev.Outcome)),
	)
}

// runTick sends this tick's broadcast to every connection and then lets
// the session move on by itself.
func (l *Lobby) runTick() {
	l.metrics.Ticks.Inc()

	byPlayer := make(map[engine.PlayerID]*client, len(l.clients))
	ordered := make([]*client, 0, len(l.clients))
	for _, c := range l.clients {
		byPlayer[c.player] = c
		ordered = append(ordered, c)
	}
	slices.SortFunc(ordered, func(a, b *client) int { return int(a.player) - int(b.player) })

	for _, d := range engine.Broadcast(l.state) {
		if c, ok := byPlayer[d.To]; ok {
			c.buf.Send(d.Msg)
		}
	}

	for _, c := range ordered {
		out := c.buf.Drain()
		if out == nil {
			continue
		}
		select {
		case c.outbox <- out:
			// ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("client", c.id), zap.Uint8("player", uint8(c.player)))
			l.metrics.Dropped.Inc()
			l.remove(c)
		}
	}

	l.state = engine.MarkAnnounced(l.state)
	if events, newState := engine.Advance(l.state); len(events) > 0 {
		l.commit(newState, events)
	}
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox) // Tell client no more bytes
		delete(l.clients, id)
	}
	l.cancel()
}

// Expose the inbox so the hub and tests can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Send delivers m unless ctx or the lobby finishes first.
func (l *Lobby) Send(ctx context.Context, m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	case <-l.ctx.Done():
		return false
	}
}

// State fetches a race-free view of the session.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !l.Send(ctx, GetState{Reply: reply}) {
		return View{}, errors.New("lobby stopped")
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.ctx.Done():
		return View{}, errors.New("lobby stopped")
	}
}
