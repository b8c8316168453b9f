package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

var ErrClosed = errors.New("session closed")

// Host is what a session needs from the surrounding application.
type Host interface {
	Settings() host.Settings
	UpdateSettings(s host.Settings) error
	ApplyTransfer(ctx context.Context, s roster.State) error
	Notify(message string, severity host.Severity)
	StageCandidate(ctx context.Context, p roster.Participant) error
	TakeCandidate(id int) (roster.Participant, error)
	DropCandidate(id int) error
	Candidates() []roster.Participant
}

type Msg interface{ isSessionMsg() }

// Submit applies Cmd. Reply, when set, receives the outcome.
type Submit struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Submit) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Update // where this client wants to receive updates
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type ChangeSettings struct {
	Settings host.Settings
	Reply    chan error
}

func (ChangeSettings) isSessionMsg() {}

// Approve moves a staged candidate into the queue.
type Approve struct {
	ID    int
	Reply chan Result
}

func (Approve) isSessionMsg() {}

type ingested struct{ Participant roster.Participant }

func (ingested) isSessionMsg() {}

// staged is a chat candidate waiting for host approval.
type staged struct{ Participant roster.Participant }

func (staged) isSessionMsg() {}

type noticed struct{ Notice host.Notice }

func (noticed) isSessionMsg() {}

// refresh rebroadcasts the current state, e.g. after the candidate list
// changed outside the session goroutine.
type refresh struct{}

func (refresh) isSessionMsg() {}

type ingestionChanged struct{ Status ingest.Snapshot }

func (ingestionChanged) isSessionMsg() {}

// Result is the outcome of one command. When PersistErr is set the state
// was applied in memory but the host failed to save it.
type Result struct {
	Version    int
	State      roster.State
	Preview    engine.Preview
	Err        error
	PersistErr error
}

type UpdateKind string

const (
	KindState     UpdateKind = "state"
	KindNotice    UpdateKind = "notice"
	KindIngestion UpdateKind = "ingestion"
)

// Update is pushed to subscribers. Kind says which part changed. State
// updates sent on join also carry Ingestion.
type Update struct {
	Kind       UpdateKind
	Version    int
	State      roster.State
	Preview    engine.Preview
	Settings   host.Settings
	Candidates []roster.Participant
	Notice     *host.Notice
	Ingestion  *ingest.Snapshot
}

type View struct {
	Code       string
	Version    int
	NumClients int
	State      roster.State
	Preview    engine.Preview
	Settings   host.Settings
	Candidates []roster.Participant
	Ingestion  ingest.Snapshot
}

type Options struct {
	Log            *zap.Logger
	PersistTimeout time.Duration
	Ingest         ingest.Options
}

type Session struct {
	code     string
	inbox    chan Msg
	registry *roster.Registry
	version  int
	clients  map[string]chan Update
	host     Host
	pipeline *ingest.Pipeline
	status   ingest.Snapshot
	log      *zap.Logger
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(parent context.Context, code string, initial roster.State, h Host, source ingest.ChatSource, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", code))
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}

	s := &Session{
		code:     code,
		inbox:    make(chan Msg, 64), // Small buffer
		registry: roster.NewRegistry(initial),
		clients:  make(map[string]chan Update),
		host:     h,
		status:   ingest.Snapshot{Status: ingest.StatusDisconnected},
		log:      log,
		timeout:  opts.PersistTimeout,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	ingestOpts := opts.Ingest
	if ingestOpts.Log == nil {
		ingestOpts.Log = log.Named("ingest")
	}
	s.pipeline = ingest.New(ctx, source, h, s.registry.IDs(), pipelineSink{s}, ingestOpts)

	go s.loop()
	return s
}

func (s *Session) Code() string { return s.code }

// Expose the inbox so tests or the WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				st := s.status
				up := s.update()
				up.Ingestion = &st
				msg.Outbox <- up

			case Leave:
				delete(s.clients, msg.ClientID)

			case Submit:
				res := s.apply(msg.Cmd, false)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case ingested:
				s.apply(engine.Command{Type: engine.CmdAdd, To: roster.ListQueue, Participant: msg.Participant}, true)

			case staged:
				s.stage(msg.Participant)

			case Approve:
				res := s.approve(msg.ID)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case ChangeSettings:
				err := s.changeSettings(msg.Settings)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case refresh:
				s.broadcast(s.update())

			case noticed:
				n := msg.Notice
				s.broadcast(Update{Kind: KindNotice, Version: s.version, Notice: &n})

			case ingestionChanged:
				s.status = msg.Status
				st := msg.Status
				s.broadcast(Update{Kind: KindIngestion, Version: s.version, Ingestion: &st})

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// apply runs cmd through the engine. Chat registrations rejected because
// the author is already seated or queued are dropped quietly.
func (s *Session) apply(cmd engine.Command, fromChat bool) Result {
	current := s.registry.Snapshot()
	settings := s.host.Settings()
	rules := engine.Rules{PartySize: settings.PartySize, RotationWidth: settings.RotationWidth}

	events, next, err := engine.Apply(current, rules, cmd)
	if err != nil {
		s.reject(cmd, err, fromChat)
		return s.result(err)
	}
	if len(events) == 0 {
		return s.result(nil)
	}

	s.registry.Replace(next)
	s.version++
	persistErr := s.persist(next)

	s.log.Debug("command applied",
		zap.String("command", string(cmd.Type)),
		zap.Int("version", s.version),
		zap.Int("party", len(next.Party)),
		zap.Int("queue", len(next.Queue)))

	s.broadcast(s.update())
	res := s.result(nil)
	res.PersistErr = persistErr
	return res
}

func (s *Session) approve(id int) Result {
	p, err := s.host.TakeCandidate(id)
	if err != nil {
		s.notify(err.Error(), host.SeverityWarning)
		return s.result(err)
	}
	return s.apply(engine.Command{Type: engine.CmdAdd, To: roster.ListQueue, Participant: p}, false)
}

func (s *Session) changeSettings(next host.Settings) error {
	if err := s.host.UpdateSettings(next); err != nil {
		s.notify(err.Error(), host.SeverityWarning)
		return err
	}
	s.version++
	err := s.persist(s.registry.Snapshot())
	s.broadcast(s.update())
	return err
}

// stage hands a chat candidate to the host unless the author is already
// seated or queued.
func (s *Session) stage(p roster.Participant) {
	if p.ChannelID != "" && s.registry.Snapshot().HasChannel(p.ChannelID) {
		s.log.Debug("chat author already registered", zap.String("channel", p.ChannelID))
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.host.StageCandidate(ctx, p); err != nil {
		s.log.Debug("candidate not staged", zap.String("channel", p.ChannelID), zap.Error(err))
		return
	}
	s.broadcast(s.update())
	n := host.Notice{Message: p.Name + " is waiting for approval", Severity: host.SeverityInfo, At: time.Now()}
	s.broadcast(Update{Kind: KindNotice, Version: s.version, Notice: &n})
}

func (s *Session) persist(st roster.State) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.host.ApplyTransfer(ctx, st); err != nil {
		s.log.Error("persist snapshot", zap.Int("version", s.version), zap.Error(err))
		s.notify("failed to save session: "+err.Error(), host.SeverityError)
		return err
	}
	return nil
}

func (s *Session) reject(cmd engine.Command, err error, fromChat bool) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		s.log.Warn("invalid command", zap.String("command", string(cmd.Type)), zap.Error(err))
	case fromChat && errors.Is(err, engine.ErrAlreadyRegistered):
		s.log.Debug("chat author already registered", zap.String("channel", cmd.Participant.ChannelID))
	default:
		s.notify(noticeText(err), host.SeverityWarning)
	}
}

// notify tells the host and every subscriber. Only called from the
// session goroutine.
func (s *Session) notify(message string, severity host.Severity) {
	s.host.Notify(message, severity)
	n := host.Notice{Message: message, Severity: severity, At: time.Now()}
	s.broadcast(Update{Kind: KindNotice, Version: s.version, Notice: &n})
}

func (s *Session) shutdown() {
	s.cancel()
	s.pipeline.Disable()
	for id, ch := range s.clients {
		close(ch) // Tell client no more updates
		delete(s.clients, id)
	}
}

func (s *Session) broadcast(up Update) {
	for id, ch := range s.clients {
		select {
		case ch <- up:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) update() Update {
	st := s.registry.Snapshot()
	settings := s.host.Settings()
	return Update{
		Kind:       KindState,
		Version:    s.version,
		State:      st,
		Preview:    engine.Predict(st.Party, st.Queue, settings.RotationWidth),
		Settings:   settings,
		Candidates: s.host.Candidates(),
	}
}

func (s *Session) result(err error) Result {
	st := s.registry.Snapshot()
	return Result{
		Version: s.version,
		State:   st,
		Preview: engine.Predict(st.Party, st.Queue, s.host.Settings().RotationWidth),
		Err:     err,
	}
}

func (s *Session) view() View {
	up := s.update()
	return View{
		Code:       s.code,
		Version:    s.version,
		NumClients: len(s.clients),
		State:      up.State,
		Preview:    up.Preview,
		Settings:   up.Settings,
		Candidates: up.Candidates,
		Ingestion:  s.status,
	}
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, engine.ErrCapacityExceeded):
		return "The party is full, so nobody can join it right now."
	case errors.Is(err, engine.ErrFixedParticipant):
		return "Fixed participants cannot leave the party."
	default:
		return err.Error()
	}
}
