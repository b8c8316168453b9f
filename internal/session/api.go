package session

import (
	"context"
	"time"

	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

// Do submits cmd and waits for its result.
func (s *Session) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.send(ctx, Submit{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Move(ctx context.Context, from roster.List, fromIndex int, to roster.List, toIndex int) (Result, error) {
	return s.Do(ctx, engine.Move(from, fromIndex, to, toIndex))
}

// Add seats a new participant by hand. The id is allocated here.
func (s *Session) Add(ctx context.Context, name string, to roster.List) (Result, error) {
	p := roster.Participant{ID: s.registry.IDs().Next(), Name: ingest.SanitizeName(name)}
	return s.Do(ctx, engine.Command{Type: engine.CmdAdd, To: to, Participant: p})
}

func (s *Session) Approve(ctx context.Context, id int) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.send(ctx, Approve{ID: id, Reply: reply}); err != nil {
		return Result{}, err
	}
	return await(ctx, s, reply)
}

// Reject drops a staged candidate without enqueueing it.
func (s *Session) Reject(ctx context.Context, id int) error {
	if err := s.host.DropCandidate(id); err != nil {
		return err
	}
	return s.send(ctx, refresh{})
}

func (s *Session) UpdateSettings(ctx context.Context, settings host.Settings) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, ChangeSettings{Settings: settings, Reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Preview(ctx context.Context) (engine.Preview, error) {
	v, err := s.View(ctx)
	return v.Preview, err
}

func (s *Session) EnableIngestion(source, keyword string) error {
	return s.pipeline.Enable(source, keyword)
}

func (s *Session) DisableIngestion() {
	s.pipeline.Disable()
}

func (s *Session) Ingestion() ingest.Snapshot {
	return s.pipeline.Status()
}

func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) send(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}
}

// pipelineSink feeds ingestion output back through the inbox so chat
// registrations are serialized with interactive commands.
type pipelineSink struct{ s *Session }

func (p pipelineSink) Enqueue(participant roster.Participant) {
	p.post(ingested{Participant: participant})
}

// Stage defers to the session goroutine, which checks the roster before
// the host sees the candidate.
func (p pipelineSink) Stage(participant roster.Participant) error {
	p.post(staged{Participant: participant})
	return nil
}

func (p pipelineSink) Notify(message string, severity host.Severity) {
	p.s.host.Notify(message, severity)
	p.post(noticed{Notice: host.Notice{Message: message, Severity: severity, At: time.Now()}})
}

func (p pipelineSink) StatusChanged(snap ingest.Snapshot) {
	p.post(ingestionChanged{Status: snap})
}

func (p pipelineSink) post(m Msg) {
	select {
	case p.s.inbox <- m:
	case <-p.s.ctx.Done():
	}
}
