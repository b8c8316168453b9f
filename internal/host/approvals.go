package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

var (
	ErrAlreadyStaged     = errors.New("candidate is already awaiting approval")
	ErrCandidateNotFound = errors.New("candidate not found")
)

// Approvals holds chat candidates staged while the session runs in
// approval mode. Candidates leave only through Take (approved) or Drop
// (rejected). Safe for concurrent use.
type Approvals struct {
	mu      sync.Mutex
	pending []roster.Participant
}

func NewApprovals() *Approvals {
	return &Approvals{}
}

func (a *Approvals) Stage(p roster.Participant) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.pending {
		if c.ID == p.ID || (p.ChannelID != "" && c.ChannelID == p.ChannelID) {
			return fmt.Errorf("%w: %s", ErrAlreadyStaged, p.Name)
		}
	}
	a.pending = append(a.pending, p)
	return nil
}

func (a *Approvals) Take(id int) (roster.Participant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.pending, func(c roster.Participant) bool { return c.ID == id })
	if i < 0 {
		return roster.Participant{}, fmt.Errorf("%w: %d", ErrCandidateNotFound, id)
	}
	p := a.pending[i]
	a.pending = slices.Delete(a.pending, i, i+1)
	return p, nil
}

func (a *Approvals) Drop(id int) error {
	_, err := a.Take(id)
	return err
}

func (a *Approvals) List() []roster.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.pending)
}
