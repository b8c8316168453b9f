package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/session"
)

var (
	ErrCodeTaken = errors.New("session code already in use")
	ErrNotFound  = errors.New("session not found")
	ErrStopped   = errors.New("hub stopped")
)

// Factory builds sessions for the hub. Restore returns ErrNotFound when
// nothing was saved under code.
type Factory interface {
	Create(ctx context.Context, code string) (*session.Session, error)
	Restore(ctx context.Context, code string) (*session.Session, error)
}

type HubMsg interface{ isHubMsg() }

// Reply carries a session or the reason there is none.
type Reply struct {
	Session *session.Session
	Err     error
}

type CreateSession struct {
	Code  string
	Reply chan Reply
}

// GetSession returns a live session, restoring it from storage when the
// code is unknown in memory.
type GetSession struct {
	Code  string
	Reply chan Reply
}

type RemoveSession struct {
	Code string
}

type ListSessions struct {
	Reply chan []string
}

type ShutdownHub struct {
	Done chan struct{}
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ListSessions) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	factory  Factory
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		factory:  factory,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if h.live(msg.Code) != nil {
					msg.Reply <- Reply{Err: ErrCodeTaken}
					break
				}
				s, err := h.factory.Create(h.ctx, msg.Code)
				if err == nil {
					h.sessions[msg.Code] = s
					h.log.Info("session created", zap.String("session", msg.Code))
				}
				msg.Reply <- Reply{Session: s, Err: err}

			case GetSession:
				if s := h.live(msg.Code); s != nil {
					msg.Reply <- Reply{Session: s}
					break
				}
				s, err := h.factory.Restore(h.ctx, msg.Code)
				if err == nil {
					h.sessions[msg.Code] = s
					h.log.Info("session restored", zap.String("session", msg.Code))
				}
				msg.Reply <- Reply{Session: s, Err: err}

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Close()
					delete(h.sessions, msg.Code)
					h.log.Info("session removed", zap.String("session", msg.Code))
				}

			case ListSessions:
				codes := make([]string, 0, len(h.sessions))
				for code := range h.sessions {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				close(msg.Done)
				return
			}
		}
	}
}

// live returns the in-memory session for code, forgetting it if its
// goroutine already exited.
func (h *Hub) live(code string) *session.Session {
	s := h.sessions[code]
	if s == nil {
		return nil
	}
	select {
	case <-s.Done():
		delete(h.sessions, code)
		return nil
	default:
		return s
	}
}

func (h *Hub) shutdown() {
	for code, s := range h.sessions {
		s.Close()
		delete(h.sessions, code)
	}
}

// Create registers a fresh session under code.
func (h *Hub) Create(ctx context.Context, code string) (*session.Session, error) {
	return h.ask(ctx, CreateSession{Code: code, Reply: make(chan Reply, 1)})
}

func (h *Hub) Get(ctx context.Context, code string) (*session.Session, error) {
	return h.ask(ctx, GetSession{Code: code, Reply: make(chan Reply, 1)})
}

func (h *Hub) Remove(code string) {
	select {
	case h.inbox <- RemoveSession{Code: code}:
	case <-h.done:
	}
}

// Shutdown closes every session and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case h.inbox <- ShutdownHub{Done: done}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ask(ctx context.Context, m HubMsg) (*session.Session, error) {
	var reply chan Reply
	switch msg := m.(type) {
	case CreateSession:
		reply = msg.Reply
	case GetSession:
		reply = msg.Reply
	}

	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrStopped
	}
	select {
	case r := <-reply:
		return r.Session, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrStopped
	}
}
