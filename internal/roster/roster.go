package roster

import (
	"slices"
	"sync/atomic"
)

// OwnerID is the id of the session owner, seated and fixed at creation.
const OwnerID = 0

const DefaultOwnerName = "Host"

type List string

const (
	ListParty List = "party"
	ListQueue List = "queue"
)

func (l List) Valid() bool {
	return l == ListParty || l == ListQueue
}

type Participant struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsFixed bool   `json:"is_fixed"`
	// ChannelID is the chat identity of an ingested participant. Empty for
	// participants added by hand.
	ChannelID string `json:"channel_id,omitempty"`
}

// State is the ordered party and queue of a session. Position matters in
// both: index 0 of the party rotates out first, index 0 of the queue
// enters first.
type State struct {
	Party []Participant `json:"party"`
	Queue []Participant `json:"queue"`
}

func NewState(ownerName string) State {
	if ownerName == "" {
		ownerName = DefaultOwnerName
	}
	return State{
		Party: []Participant{{ID: OwnerID, Name: ownerName, IsFixed: true}},
		Queue: []Participant{},
	}
}

func (s State) Clone() State {
	c := State{
		Party: slices.Clone(s.Party),
		Queue: slices.Clone(s.Queue),
	}
	if c.Party == nil {
		c.Party = []Participant{}
	}
	if c.Queue == nil {
		c.Queue = []Participant{}
	}
	return c
}

// Members returns the slice backing list l, or nil for an unknown list.
func (s State) Members(l List) []Participant {
	switch l {
	case ListParty:
		return s.Party
	case ListQueue:
		return s.Queue
	default:
		return nil
	}
}

// Find reports which list holds id and at what position.
func (s State) Find(id int) (List, int, bool) {
	if i := slices.IndexFunc(s.Party, func(p Participant) bool { return p.ID == id }); i >= 0 {
		return ListParty, i, true
	}
	if i := slices.IndexFunc(s.Queue, func(p Participant) bool { return p.ID == id }); i >= 0 {
		return ListQueue, i, true
	}
	return "", -1, false
}

func (s State) HasChannel(channelID string) bool {
	if channelID == "" {
		return false
	}
	match := func(p Participant) bool { return p.ChannelID == channelID }
	return slices.ContainsFunc(s.Party, match) || slices.ContainsFunc(s.Queue, match)
}

// MaxID returns the largest id in the state, or -1 when it is empty.
func (s State) MaxID() int {
	maxID := -1
	for _, p := range s.Party {
		maxID = max(maxID, p.ID)
	}
	for _, p := range s.Queue {
		maxID = max(maxID, p.ID)
	}
	return maxID
}

// Registry holds the live state of one session. It is not safe for
// concurrent use; the session goroutine is its only owner.
type Registry struct {
	state State
	ids   *IDAllocator
}

func NewRegistry(initial State) *Registry {
	ids := NewIDAllocator(initial.MaxID() + 1)
	return &Registry{state: initial.Clone(), ids: ids}
}

func (r *Registry) Snapshot() State { return r.state.Clone() }

func (r *Registry) Replace(s State) {
	r.state = s.Clone()
	r.ids.Observe(s.MaxID())
}

func (r *Registry) IDs() *IDAllocator { return r.ids }

// IDAllocator hands out participant ids that are never reused within a
// session. Safe for concurrent use.
type IDAllocator struct {
	next atomic.Int64
}

func NewIDAllocator(start int) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(int64(max(start, OwnerID+1)))
	return a
}

func (a *IDAllocator) Next() int {
	return int(a.next.Add(1) - 1)
}

// Observe makes sure ids handed out later are greater than id.
func (a *IDAllocator) Observe(id int) {
	for {
		cur := a.next.Load()
		if int64(id) < cur {
			return
		}
		if a.next.CompareAndSwap(cur, int64(id)+1) {
			return
		}
	}
}
