package host

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

// Adapter is the host side of one session: it owns the settings, persists
// snapshots and keeps the approval staging area. One Adapter per session.
type Adapter struct {
	code      string
	store     Store
	log       *zap.Logger
	approvals *Approvals

	mu       sync.RWMutex
	settings Settings
}

func NewAdapter(code string, settings Settings, store Store, log *zap.Logger) (*Adapter, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		code:      code,
		store:     store,
		log:       log.With(zap.String("session", code)),
		approvals: NewApprovals(),
		settings:  settings,
	}, nil
}

func (a *Adapter) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

func (a *Adapter) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
	return nil
}

func (a *Adapter) ApplyTransfer(ctx context.Context, s roster.State) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.SaveSnapshot(ctx, a.code, a.Settings(), s); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (a *Adapter) Notify(message string, severity Severity) {
	fields := []zap.Field{zap.String("severity", string(severity)), zap.String("notice", message)}
	switch severity {
	case SeverityError:
		a.log.Error("notice", fields...)
	case SeverityWarning:
		a.log.Warn("notice", fields...)
	default:
		a.log.Info("notice", fields...)
	}
}

func (a *Adapter) StageCandidate(_ context.Context, p roster.Participant) error {
	if err := a.approvals.Stage(p); err != nil {
		return err
	}
	a.log.Info("candidate staged", zap.Int("participant", p.ID), zap.String("name", p.Name))
	return nil
}

func (a *Adapter) TakeCandidate(id int) (roster.Participant, error) {
	return a.approvals.Take(id)
}

func (a *Adapter) DropCandidate(id int) error {
	return a.approvals.Drop(id)
}

func (a *Adapter) Candidates() []roster.Participant {
	return a.approvals.List()
}
