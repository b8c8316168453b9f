package hub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
	"github.com/DoyleJ11/party-queue/internal/session"
)

// SessionFactory wires a host adapter, the shared store and the chat
// source into each new session. Store and Source may be nil.
type SessionFactory struct {
	Store     host.Store
	Source    ingest.ChatSource
	Defaults  host.Settings
	OwnerName string
	Session   session.Options
	Log       *zap.Logger
}

func (f SessionFactory) Create(ctx context.Context, code string) (*session.Session, error) {
	owner := f.OwnerName
	if owner == "" {
		owner = roster.DefaultOwnerName
	}
	initial := roster.NewState(owner)

	adapter, err := host.NewAdapter(code, f.Defaults, f.Store, f.Log)
	if err != nil {
		return nil, err
	}
	if err := adapter.ApplyTransfer(ctx, initial); err != nil {
		return nil, fmt.Errorf("create session %s: %w", code, err)
	}
	return session.New(ctx, code, initial, adapter, f.Source, f.options()), nil
}

func (f SessionFactory) Restore(ctx context.Context, code string) (*session.Session, error) {
	if f.Store == nil {
		return nil, ErrNotFound
	}
	settings, st, err := f.Store.LoadSnapshot(ctx, code)
	if errors.Is(err, host.ErrNoSnapshot) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", code, err)
	}

	adapter, err := host.NewAdapter(code, settings, f.Store, f.Log)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", code, err)
	}
	return session.New(ctx, code, st, adapter, f.Source, f.options()), nil
}

func (f SessionFactory) options() session.Options {
	opts := f.Session
	if opts.Log == nil {
		opts.Log = f.Log
	}
	return opts
}
