package host

import (
	"context"
	"errors"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

var ErrNoSnapshot = errors.New("no stored snapshot for session")

// Store persists session snapshots. Implementations live in internal/store.
type Store interface {
	SaveSnapshot(ctx context.Context, code string, settings Settings, s roster.State) error
	LoadSnapshot(ctx context.Context, code string) (Settings, roster.State, error)
}
