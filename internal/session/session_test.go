package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

// helper: receive one update with a timeout so tests never hang
func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case up, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return up
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{} // unreachable
	}
}

func recvNoUpdate(t *testing.T, ch <-chan Update, within time.Duration) {
	t.Helper()
	select {
	case up, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further updates possible
			return
		}
		t.Fatalf("expected no update within %v, but got: %+v", within, up)
	case <-time.After(within):
		// good: no update
	}
}

// recvState skips notices and ingestion updates until a state update arrives.
func recvState(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	deadline := time.Now().Add(within)
	for {
		up := recvUpdate(t, ch, time.Until(deadline))
		if up.Kind == KindState {
			return up
		}
	}
}

type fakeHost struct {
	mu        sync.Mutex
	settings  host.Settings
	saves     int
	failSave  bool
	notices   []host.Notice
	approvals *host.Approvals
}

func newFakeHost(settings host.Settings) *fakeHost {
	return &fakeHost{settings: settings, approvals: host.NewApprovals()}
}

func (h *fakeHost) Settings() host.Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

func (h *fakeHost) UpdateSettings(s host.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings = s
	return nil
}

func (h *fakeHost) ApplyTransfer(context.Context, roster.State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failSave {
		return errors.New("store unavailable")
	}
	h.saves++
	return nil
}

func (h *fakeHost) Notify(message string, severity host.Severity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, host.Notice{Message: message, Severity: severity})
}

func (h *fakeHost) StageCandidate(_ context.Context, p roster.Participant) error {
	return h.approvals.Stage(p)
}

func (h *fakeHost) TakeCandidate(id int) (roster.Participant, error) { return h.approvals.Take(id) }

func (h *fakeHost) DropCandidate(id int) error { return h.approvals.Drop(id) }

func (h *fakeHost) Candidates() []roster.Participant { return h.approvals.List() }

func (h *fakeHost) saveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saves
}

func settings(partySize int, mode host.RegistrationMode) host.Settings {
	return host.Settings{PartySize: partySize, RotationWidth: 1, RegistrationMode: mode}
}

func p(id int) roster.Participant { return roster.Participant{ID: id, Name: "p"} }

func fullState() roster.State {
	return roster.State{
		Party: []roster.Participant{{ID: 0, Name: "owner", IsFixed: true}, p(1), p(2), p(3), p(4)},
		Queue: []roster.Participant{p(5), p(6), p(7)},
	}
}

func startSession(t *testing.T, initial roster.State, h Host, src ingest.ChatSource) (*Session, chan Update) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := New(ctx, "TEST01", initial, h, src, Options{Ingest: ingest.Options{MinPollInterval: time.Millisecond}})
	out := make(chan Update, 16)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvUpdate(t, out, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)
	require.Equal(t, KindState, first.Kind)
	require.NotNil(t, first.Ingestion)
	require.Equal(t, ingest.StatusDisconnected, first.Ingestion.Status)
	return s, out
}

func TestSession_Move_BroadcastsAndPersists(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	initial := roster.State{Party: []roster.Participant{{ID: 0, IsFixed: true}, p(1)}, Queue: []roster.Participant{p(2), p(3)}}
	s, out := startSession(t, initial, h, nil)

	res, err := s.Move(context.Background(), roster.ListQueue, 0, roster.ListParty, 2)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Version)

	next := recvState(t, out, 100*time.Millisecond)
	require.Equal(t, 1, next.Version)
	require.Len(t, next.State.Party, 3)
	require.Equal(t, 2, next.State.Party[2].ID)
	require.Equal(t, 1, h.saveCount())

	// Preview follows the new state: party member 1 leaves, queue member 3 enters.
	require.Equal(t, []int{1}, next.Preview.Leaving)
	require.Equal(t, []int{3}, next.Preview.Entering)
}

func TestSession_NoopMove_DoesNotPersist(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	s, out := startSession(t, roster.NewState("owner"), h, nil)

	res, err := s.Move(context.Background(), roster.ListParty, 0, roster.ListParty, 0)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, 0, res.Version)

	recvNoUpdate(t, out, 50*time.Millisecond)
	require.Zero(t, h.saveCount())
}

func TestSession_FullParty_RejectsAndNotifies(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	s, out := startSession(t, fullState(), h, nil)

	res, err := s.Move(context.Background(), roster.ListQueue, 0, roster.ListParty, 0)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, engine.ErrCapacityExceeded)
	require.Equal(t, fullState(), res.State)
	require.Equal(t, 0, res.Version)

	up := recvUpdate(t, out, 100*time.Millisecond)
	require.NotNil(t, up.Notice)
	require.Equal(t, host.SeverityWarning, up.Notice.Severity)
	require.Zero(t, h.saveCount())
}

func TestSession_ValidationError_IsNotUserFacing(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	s, out := startSession(t, roster.NewState("owner"), h, nil)

	res, err := s.Move(context.Background(), roster.ListQueue, 4, roster.ListParty, 0)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, engine.ErrValidation)

	recvNoUpdate(t, out, 50*time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Empty(t, h.notices)
}

func TestSession_PersistFailure_KeepsInMemoryResult(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	h.failSave = true
	s, _ := startSession(t, roster.NewState("owner"), h, nil)

	res, err := s.Add(context.Background(), "guest", roster.ListQueue)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Error(t, res.PersistErr)
	require.Len(t, res.State.Queue, 1)
	require.Equal(t, 1, res.Version)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.notices, 1)
	require.Equal(t, host.SeverityError, h.notices[0].Severity)
}

func TestSession_DropSlowClient(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "TEST01", roster.NewState("owner"), h, nil, Options{})
	clientOut := make(chan Update, 1)
	s.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	_, err := s.Add(context.Background(), "guest", roster.ListQueue)
	require.NoError(t, err)

	view, err := s.View(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, view.NumClients, "expected slow client to be dropped")
}

func TestSession_Shutdown_ClosesOutboxes(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	s, out := startSession(t, roster.NewState("owner"), h, nil)

	s.Inbox() <- Shutdown{}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not stop")
	}
	_, ok := <-out
	require.False(t, ok)

	_, err := s.View(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestSession_UpdateSettings(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	initial := roster.State{Party: []roster.Participant{{ID: 0, IsFixed: true}, p(1), p(2)}, Queue: []roster.Participant{p(3), p(4)}}
	s, out := startSession(t, initial, h, nil)

	require.Error(t, s.UpdateSettings(context.Background(), host.Settings{PartySize: 0, RotationWidth: 1, RegistrationMode: host.ModeDirect}))
	_ = recvUpdate(t, out, 100*time.Millisecond) // warning notice

	require.NoError(t, s.UpdateSettings(context.Background(), host.Settings{PartySize: 5, RotationWidth: 2, RegistrationMode: host.ModeDirect}))
	up := recvState(t, out, 100*time.Millisecond)
	require.Equal(t, 2, up.Settings.RotationWidth)
	require.Equal(t, []int{1, 2}, up.Preview.Leaving)
	require.Equal(t, []int{3, 4}, up.Preview.Entering)
}

type scriptedSource struct {
	mu    sync.Mutex
	pages []ingest.ChatPage
}

func (s *scriptedSource) ResolveVideo(context.Context, string) (ingest.VideoInfo, error) {
	return ingest.VideoInfo{Title: "live", ChatID: "chat", IsLive: true}, nil
}

func (s *scriptedSource) PollMessages(ctx context.Context, _, _ string) (ingest.ChatPage, error) {
	s.mu.Lock()
	if len(s.pages) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return ingest.ChatPage{}, ctx.Err()
	}
	pg := s.pages[0]
	s.pages = s.pages[1:]
	s.mu.Unlock()
	return pg, nil
}

func chatPage(msgs ...ingest.ChatMessage) ingest.ChatPage {
	return ingest.ChatPage{PollingInterval: time.Millisecond, Messages: msgs}
}

func TestSession_ChatTriggersEnqueueOncePerAuthor(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	src := &scriptedSource{pages: []ingest.ChatPage{
		chatPage(ingest.ChatMessage{ID: "m1", AuthorID: "UC1", AuthorName: "<alice>", Text: "!join"}),
		chatPage(
			ingest.ChatMessage{ID: "m1", AuthorID: "UC1", AuthorName: "<alice>", Text: "!join"},
			ingest.ChatMessage{ID: "m2", AuthorID: "UC1", AuthorName: "alice", Text: "!join again"},
			ingest.ChatMessage{ID: "m3", AuthorID: "UC2", AuthorName: "bob", Text: "hello"},
		),
	}}
	s, _ := startSession(t, roster.NewState("owner"), h, src)

	require.NoError(t, s.EnableIngestion("https://youtu.be/dQw4w9WgXcQ", "!join"))
	require.Eventually(t, func() bool { return s.Ingestion().Processed == 3 }, time.Second, 5*time.Millisecond)

	view, err := s.View(context.Background())
	require.NoError(t, err)
	require.Len(t, view.State.Queue, 1)
	require.Equal(t, "alice", view.State.Queue[0].Name)
	require.Equal(t, "UC1", view.State.Queue[0].ChannelID)
	require.Equal(t, ingest.StatusConnected, view.Ingestion.Status)

	s.DisableIngestion()
	require.Equal(t, ingest.StatusDisconnected, s.Ingestion().Status)
}

func TestSession_ApprovalMode_StagesUntilApproved(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeApproval))
	src := &scriptedSource{pages: []ingest.ChatPage{
		chatPage(ingest.ChatMessage{ID: "m1", AuthorID: "UC1", AuthorName: "alice", Text: "!join"}),
	}}
	s, _ := startSession(t, roster.NewState("owner"), h, src)

	require.NoError(t, s.EnableIngestion("dQw4w9WgXcQ", "!join"))
	require.Eventually(t, func() bool { return len(h.Candidates()) == 1 }, time.Second, 5*time.Millisecond)

	view, err := s.View(context.Background())
	require.NoError(t, err)
	require.Empty(t, view.State.Queue)

	candidate := h.Candidates()[0]
	res, err := s.Approve(context.Background(), candidate.ID)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Len(t, res.State.Queue, 1)
	require.Equal(t, candidate.ID, res.State.Queue[0].ID)
	require.Empty(t, h.Candidates())

	res, err = s.Approve(context.Background(), candidate.ID)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, host.ErrCandidateNotFound)
}

func TestSession_ApprovalMode_IgnoresRegisteredAuthors(t *testing.T) {
	tests := []struct {
		name    string
		initial roster.State
	}{
		{"queued", roster.State{
			Party: []roster.Participant{{ID: 0, Name: "owner", IsFixed: true}},
			Queue: []roster.Participant{{ID: 7, Name: "alice", ChannelID: "UC1"}},
		}},
		{"seated", roster.State{
			Party: []roster.Participant{{ID: 0, Name: "owner", IsFixed: true}, {ID: 7, Name: "alice", ChannelID: "UC1"}},
			Queue: []roster.Participant{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHost(settings(5, host.ModeApproval))
			src := &scriptedSource{pages: []ingest.ChatPage{
				chatPage(
					ingest.ChatMessage{ID: "m9", AuthorID: "UC1", AuthorName: "alice", Text: "!join"},
					ingest.ChatMessage{ID: "m10", AuthorID: "UC2", AuthorName: "bob", Text: "!join"},
				),
			}}
			s, _ := startSession(t, tt.initial, h, src)

			require.NoError(t, s.EnableIngestion("dQw4w9WgXcQ", "!join"))
			require.Eventually(t, func() bool { return len(h.Candidates()) == 1 }, time.Second, 5*time.Millisecond)

			// bob was staged after alice, so alice's trigger has been handled.
			_, err := s.View(context.Background())
			require.NoError(t, err)
			candidates := h.Candidates()
			require.Len(t, candidates, 1)
			require.Equal(t, "UC2", candidates[0].ChannelID)
		})
	}
}

func TestSession_UpdateSettings_PersistFailureStillBroadcasts(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	h.failSave = true
	s, out := startSession(t, roster.NewState("owner"), h, nil)

	err := s.UpdateSettings(context.Background(), host.Settings{PartySize: 7, RotationWidth: 1, RegistrationMode: host.ModeDirect})
	require.Error(t, err)

	up := recvState(t, out, 100*time.Millisecond)
	require.Equal(t, 1, up.Version)
	require.Equal(t, 7, up.Settings.PartySize)
}

func TestSession_UpdateKinds(t *testing.T) {
	h := newFakeHost(settings(5, host.ModeDirect))
	s, out := startSession(t, roster.NewState("owner"), h, nil)

	_, err := s.Do(context.Background(), engine.Command{Type: engine.CmdRemove, ParticipantID: roster.OwnerID})
	require.NoError(t, err)
	up := recvUpdate(t, out, 100*time.Millisecond)
	require.Equal(t, KindNotice, up.Kind)
	require.NotNil(t, up.Notice)

	_, err = s.Add(context.Background(), "guest", roster.ListQueue)
	require.NoError(t, err)
	up = recvUpdate(t, out, 100*time.Millisecond)
	require.Equal(t, KindState, up.Kind)
	require.Len(t, up.State.Queue, 1)
}
