// Package session keeps the connection to the game server: it dials,
// reconnects after abnormal closures, decodes inbound messages, publishes
// snapshots and sends player commands.
//
// Network goroutines only post events; all state changes happen in Pump,
// which the frame loop calls once per tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"arenaclient/sched"
)

// State is the lifecycle state of the connection.
type State int

const (
	Connecting State = iota
	Open
	ClosedNormal
	ClosedAbnormal
	ReconnectScheduled
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case ClosedNormal:
		return "closed_normal"
	case ClosedAbnormal:
		return "closed_abnormal"
	case ReconnectScheduled:
		return "reconnect_scheduled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Identity is the local player as the server knows it.
type Identity struct {
	PlayerID   string
	PlayerName string
	LobbyID    string
}

// Hooks are called from Pump on the frame loop goroutine. Any may be nil.
type Hooks struct {
	// Snapshot runs after a new snapshot is published.
	Snapshot func(prev, next *Snapshot)
	// Explosions runs when a snapshot carries more explosions than the
	// previous one, with the explosions that were not present before.
	Explosions func(now time.Time, fresh []*Explosion)
	// Countdown runs when a round starts or restarts.
	Countdown func(now time.Time)
	// StateChange runs on every lifecycle transition.
	StateChange func(State)
	// Toast shows a transient notice.
	Toast func(msg string)
	// Blocking shows a notice that needs acknowledgement.
	Blocking func(msg string)
	// LobbyLost runs after the server reports the lobby is gone. The
	// identity's lobby has already been cleared.
	LobbyLost func(msg string)
	// Identity runs when the local identity changes.
	Identity func(Identity)
}

const (
	DefaultReconnectDelay = 2000 * time.Millisecond
	DefaultJoinDelay      = 500 * time.Millisecond
	DefaultRestartDelay   = 300 * time.Millisecond
	DefaultStartDelay     = 100 * time.Millisecond
	DefaultPingInterval   = 30 * time.Second
	DefaultMoveCooldown   = 150 * time.Millisecond
	DefaultBombCooldown   = 200 * time.Millisecond

	eventQueue  = 256
	outboxQueue = 64

	// flushTimeout bounds how long a close waits for queued messages.
	flushTimeout = 250 * time.Millisecond
)

// Config configures a Session. Zero durations take the defaults.
type Config struct {
	URL      string
	Identity Identity
	Dialer   Dialer
	Sched    *sched.Scheduler
	Now      func() time.Time
	Hooks    Hooks
	Logf     func(format string, v ...any)

	ReconnectDelay time.Duration
	JoinDelay      time.Duration
	RestartDelay   time.Duration
	StartDelay     time.Duration
	// PingInterval of zero uses the default; negative disables pings.
	PingInterval time.Duration
	MoveCooldown time.Duration
	BombCooldown time.Duration
}

type eventKind int

const (
	evOpen eventKind = iota
	evMessage
	evClosed
)

type event struct {
	gen  int
	kind eventKind
	conn Conn
	data []byte
	err  error
}

// link is the live connection plus its writer queue.
type link struct {
	conn Conn
	out  chan []byte
	done chan struct{}
}

// Session is the connection state machine. Apart from Snapshot, its methods
// must be called from the frame loop goroutine.
type Session struct {
	cfg   Config
	hooks Hooks
	sch   *sched.Scheduler
	id    Identity

	state   State
	lastErr error
	gen     int
	link    *link
	events  chan event
	ctx     context.Context
	cancel  context.CancelFunc

	snap atomic.Pointer[Snapshot]

	reconnect   sched.Slot
	join        sched.Slot
	restart     sched.Slot
	start       sched.Slot
	ping        *sched.Task
	restartSent bool
	inputLocked bool
	reconnects  int

	moveLimiter *rate.Limiter
	bombLimiter *rate.Limiter
}

// New builds a session. Call Connect to start dialing.
func New(cfg Config) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = WSDialer{}
	}
	if cfg.Sched == nil {
		cfg.Sched = sched.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.JoinDelay <= 0 {
		cfg.JoinDelay = DefaultJoinDelay
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = DefaultStartDelay
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.MoveCooldown <= 0 {
		cfg.MoveCooldown = DefaultMoveCooldown
	}
	if cfg.BombCooldown <= 0 {
		cfg.BombCooldown = DefaultBombCooldown
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:         cfg,
		hooks:       cfg.Hooks,
		sch:         cfg.Sched,
		id:          cfg.Identity,
		state:       ClosedNormal,
		events:      make(chan event, eventQueue),
		ctx:         ctx,
		cancel:      cancel,
		moveLimiter: rate.NewLimiter(rate.Every(cfg.MoveCooldown), 1),
		bombLimiter: rate.NewLimiter(rate.Every(cfg.BombCooldown), 1),
	}
}

func (s *Session) logf(format string, v ...any) {
	if s.cfg.Logf != nil {
		s.cfg.Logf(format, v...)
	}
}

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Status is the short connection label shown to the player.
func (s *Session) Status() string {
	switch s.state {
	case Open:
		return "Connected"
	case Connecting:
		return "Connecting"
	}
	if s.lastErr != nil && !isCloseFrame(s.lastErr) {
		return "Error"
	}
	return "Disconnected"
}

// Identity returns the local identity.
func (s *Session) Identity() Identity { return s.id }

// Snapshot returns the latest published snapshot, or nil before the first
// one. It is safe to call from any goroutine.
func (s *Session) Snapshot() *Snapshot { return s.snap.Load() }

// Reconnects returns how many reconnect attempts have been started.
func (s *Session) Reconnects() int { return s.reconnects }

// ReconnectPending reports whether a reconnect timer is armed.
func (s *Session) ReconnectPending() bool { return s.reconnect.Pending() }

// SetInputLocked blocks movement commands while a countdown runs.
func (s *Session) SetInputLocked(v bool) { s.inputLocked = v }

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.logf("session %v -> %v", s.state, st)
	s.state = st
	if s.hooks.StateChange != nil {
		s.hooks.StateChange(st)
	}
}

// Connect starts a new connection attempt, abandoning any current one.
func (s *Session) Connect() {
	if s.ctx.Err() != nil {
		return
	}
	s.drop(false)
	s.gen++
	s.setState(Connecting)
	go s.run(s.ctx, s.gen, s.cfg.URL)
}

// drop closes the live link, if any, without changing state. With flush set
// it waits up to flushTimeout for queued messages such as leaveLobby to go
// out and closes in place; otherwise the close runs on its own goroutine so
// a stuck socket cannot stall the frame loop.
func (s *Session) drop(flush bool) {
	if s.link == nil {
		return
	}
	l := s.link
	s.link = nil
	close(l.out)
	if !flush {
		go l.conn.Close(CloseNormal, "")
		return
	}
	if l.done != nil {
		select {
		case <-l.done:
		case <-time.After(flushTimeout):
		}
	}
	l.conn.Close(CloseNormal, "")
}

func (s *Session) run(ctx context.Context, gen int, url string) {
	conn, err := s.cfg.Dialer.Dial(ctx, url)
	if err != nil {
		s.post(ctx, event{gen: gen, kind: evClosed, err: fmt.Errorf("dial %s: %w", url, err)})
		return
	}
	if !s.post(ctx, event{gen: gen, kind: evOpen, conn: conn}) {
		conn.Close(CloseNormal, "")
		return
	}
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.post(ctx, event{gen: gen, kind: evClosed, err: err})
			return
		}
		if !s.post(ctx, event{gen: gen, kind: evMessage, data: data}) {
			return
		}
	}
}

func (s *Session) post(ctx context.Context, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func writer(conn Conn, out <-chan []byte, done chan<- struct{}, logf func(string, ...any)) {
	defer close(done)
	for msg := range out {
		if err := conn.WriteMessage(msg); err != nil {
			logf("write failed: %v", err)
			// the reader sees the broken connection and reports it
			for range out {
			}
			return
		}
	}
}

// Pump applies every event the network goroutines have posted and returns
// how many it handled. It never blocks.
func (s *Session) Pump() int {
	n := 0
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
			n++
		default:
			return n
		}
	}
}

func (s *Session) handle(ev event) {
	if ev.gen != s.gen {
		if ev.kind == evOpen {
			ev.conn.Close(CloseNormal, "")
		}
		return
	}
	now := s.cfg.Now()
	switch ev.kind {
	case evOpen:
		s.opened(now, ev.conn)
	case evMessage:
		s.receive(now, ev.data)
	case evClosed:
		s.closed(now, ev.err)
	}
}

func (s *Session) opened(now time.Time, conn Conn) {
	s.reconnect.Cancel()
	s.lastErr = nil
	l := &link{conn: conn, out: make(chan []byte, outboxQueue), done: make(chan struct{})}
	s.link = l
	go writer(conn, l.out, l.done, s.logf)
	s.setState(Open)

	s.join.Replace(s.sch, now, s.cfg.JoinDelay, func(now time.Time) {
		if err := s.JoinLobby(); err != nil {
			s.logf("join lobby: %v", err)
			return
		}
		if s.restartSent {
			return
		}
		s.restartSent = true
		s.restart.Replace(s.sch, now, s.cfg.RestartDelay, func(time.Time) {
			if err := s.RestartGame(); err != nil {
				s.logf("restart game: %v", err)
			}
		})
	})
	if s.cfg.PingInterval > 0 && !s.ping.Pending() {
		s.ping = s.sch.Every(now, s.cfg.PingInterval, func(time.Time) {
			if s.state == Open {
				s.Ping()
			}
		})
	}
}

// closed handles the end of a connection attempt. Abnormal closures arm the
// reconnect slot, which holds at most one timer however many closures
// arrive before it fires.
func (s *Session) closed(now time.Time, err error) {
	s.drop(false)
	s.lastErr = err
	s.join.Cancel()
	s.restart.Cancel()
	s.start.Cancel()

	if closeCode(err) == CloseNormal {
		s.logf("connection closed normally")
		s.reconnect.Cancel()
		s.setState(ClosedNormal)
		return
	}
	s.logf("connection lost: %v", err)
	s.setState(ClosedAbnormal)
	if _, ok := s.reconnect.Schedule(s.sch, now, s.cfg.ReconnectDelay, s.reconnectNow); ok {
		s.logf("reconnecting in %v", s.cfg.ReconnectDelay)
	}
	s.setState(ReconnectScheduled)
}

func (s *Session) reconnectNow(time.Time) {
	s.reconnects++
	s.Connect()
}

// Close ends the session for good: no reconnect follows, pending timers are
// cancelled and the connection is closed with a normal close code.
func (s *Session) Close() {
	s.reconnect.Cancel()
	s.join.Cancel()
	s.restart.Cancel()
	s.start.Cancel()
	s.ping.Cancel()
	s.gen++
	s.drop(true)
	s.cancel()
	s.setState(ClosedNormal)
}

func (s *Session) receive(now time.Time, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		var pe *ProtocolError
		switch {
		case errors.Is(err, ErrUnknownKind):
			s.logf("ignoring message: %v", err)
		case errors.As(err, &pe):
			s.logf("dropping message: %v", pe)
		default:
			s.logf("dropping message: %v", err)
		}
		return
	}
	switch m := msg.(type) {
	case Joined:
		s.start.Replace(s.sch, now, s.cfg.StartDelay, func(time.Time) {
			if err := s.StartGame(); err != nil {
				s.logf("start game: %v", err)
			}
		})
	case GameState:
		s.apply(now, m.Snapshot)
	case PowerupSpawn:
		if cur := s.snap.Load(); cur != nil {
			s.snap.Store(cur.withPowerups(m.Powerups))
		}
	case PlayerInfo:
		if m.PlayerName == "" {
			return
		}
		s.id.PlayerName = m.PlayerName
		if s.hooks.Identity != nil {
			s.hooks.Identity(s.id)
		}
		if err := s.JoinGame(); err != nil {
			s.logf("join game: %v", err)
		}
	case RemoteError:
		s.reject(m.Message)
	case GameStarted, LeftLobby, Pong:
	}
}

// apply publishes next and fires the hooks its differences from the
// previous snapshot call for.
func (s *Session) apply(now time.Time, next *Snapshot) {
	prev := s.snap.Load()
	inferFacing(prev, next)

	wasWaiting := prev == nil || prev.Phase != PhasePlaying
	var oldStart time.Time
	oldCount := 0
	if prev != nil {
		oldStart = prev.StartTime
		oldCount = len(prev.Explosions)
	}

	s.snap.Store(next)

	if len(next.Explosions) > oldCount && s.hooks.Explosions != nil {
		var fresh []*Explosion
		for _, ex := range next.ExplosionList() {
			if prev == nil || prev.Explosions[ex.ID] == nil {
				fresh = append(fresh, ex)
			}
		}
		s.hooks.Explosions(now, fresh)
	}
	if s.hooks.Snapshot != nil {
		s.hooks.Snapshot(prev, next)
	}
	if next.Phase == PhasePlaying && (wasWaiting || !next.StartTime.Equal(oldStart)) {
		if s.hooks.Countdown != nil {
			s.hooks.Countdown(now)
		}
	}
}

func (s *Session) reject(msg string) {
	switch Classify(msg) {
	case RejectNavigate:
		s.logf("lobby lost: %s", msg)
		s.id.LobbyID = ""
		if s.hooks.Identity != nil {
			s.hooks.Identity(s.id)
		}
		if s.hooks.LobbyLost != nil {
			s.hooks.LobbyLost(msg)
		}
	case RejectToast:
		if s.hooks.Toast != nil {
			s.hooks.Toast(msg)
		}
	case RejectSilent:
	default:
		s.logf("server error: %s", msg)
		if s.hooks.Blocking != nil {
			s.hooks.Blocking(msg)
		}
	}
}
