package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

type VideoInfo struct {
	Title  string
	ChatID string // empty when the video has no active chat
	IsLive bool
}

type ChatMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Text        string
	PublishedAt time.Time
}

type ChatPage struct {
	NextPageToken   string
	PollingInterval time.Duration
	Messages        []ChatMessage
}

type ChatSource interface {
	ResolveVideo(ctx context.Context, videoID string) (VideoInfo, error)
	PollMessages(ctx context.Context, chatID, pageToken string) (ChatPage, error)
}

// Sink receives what the pipeline produces. Calls may arrive from the
// pipeline's goroutine and must not call back into the Pipeline.
type Sink interface {
	Enqueue(p roster.Participant)
	Stage(p roster.Participant) error
	Notify(message string, severity host.Severity)
	StatusChanged(s Snapshot)
}

type SettingsReader interface {
	Settings() host.Settings
}

type SettingsFunc func() host.Settings

func (f SettingsFunc) Settings() host.Settings { return f() }

// Snapshot is the externally visible state of a pipeline.
type Snapshot struct {
	Status    Status `json:"status"`
	Source    string `json:"source,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Title     string `json:"title,omitempty"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

type Options struct {
	// MinPollInterval is the shortest wait between polls, whatever the
	// upstream suggests.
	MinPollInterval time.Duration
	// DefaultPollInterval is used when a page carries no interval.
	DefaultPollInterval time.Duration
	DefaultKeyword      string
	Log                 *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MinPollInterval <= 0 {
		o.MinPollInterval = time.Second
	}
	if o.DefaultPollInterval <= 0 {
		o.DefaultPollInterval = 5 * time.Second
	}
	if o.DefaultKeyword == "" {
		o.DefaultKeyword = DefaultKeyword
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

type Pipeline struct {
	parent   context.Context
	source   ChatSource
	settings SettingsReader
	ids      *roster.IDAllocator
	sink     Sink
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
	seen   map[string]struct{}
	snap   Snapshot
}

func New(parent context.Context, source ChatSource, settings SettingsReader, ids *roster.IDAllocator, sink Sink, opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		parent:   parent,
		source:   source,
		settings: settings,
		ids:      ids,
		sink:     sink,
		opts:     opts,
		log:      opts.Log,
		seen:     make(map[string]struct{}),
		snap:     Snapshot{Status: StatusDisconnected},
	}
}

func (p *Pipeline) Status() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Enable starts ingesting from source. It is a no-op while the pipeline is
// connecting or connected. After an error it starts over.
func (p *Pipeline) Enable(source, keyword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.snap.Status == StatusConnecting || p.snap.Status == StatusConnected {
		return nil
	}
	if p.source == nil {
		return ErrNoSource
	}
	if keyword == "" {
		keyword = p.opts.DefaultKeyword
	}

	p.epoch++
	epoch := p.epoch
	p.seen = make(map[string]struct{})
	p.snap = Snapshot{Status: StatusConnecting, Source: source, Keyword: keyword}
	p.publishLocked()

	videoID, err := ResolveVideoID(source)
	if err != nil {
		p.failLocked(err)
		return err
	}

	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	p.log.Info("ingestion enabled", zap.String("video", videoID), zap.String("keyword", keyword))
	go p.run(ctx, epoch, videoID, keyword)
	return nil
}

// Disable stops ingestion and forgets processed messages. Results of a
// poll still in flight are dropped when they arrive.
func (p *Pipeline) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.snap.Status == StatusDisconnected {
		return
	}
	p.epoch++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seen = make(map[string]struct{})
	p.snap = Snapshot{Status: StatusDisconnected}
	p.publishLocked()
	p.log.Info("ingestion disabled")
}

func (p *Pipeline) run(ctx context.Context, epoch uint64, videoID, keyword string) {
	info, err := p.source.ResolveVideo(ctx, videoID)
	if err == nil && info.ChatID == "" {
		err = ErrNotLive
	}
	if err != nil {
		p.fail(ctx, epoch, err)
		return
	}

	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()
		return
	}
	p.snap.Title = info.Title
	p.mu.Unlock()

	var token string
	for {
		page, err := p.source.PollMessages(ctx, info.ChatID, token)
		if err != nil {
			p.fail(ctx, epoch, err)
			return
		}
		if !p.handle(ctx, epoch, page, keyword) {
			return
		}
		token = page.NextPageToken

		timer := time.NewTimer(p.interval(page.PollingInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// handle registers the new trigger messages of page. It reports false when
// the page belongs to a stale epoch.
func (p *Pipeline) handle(ctx context.Context, epoch uint64, page ChatPage, keyword string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.epoch != epoch || ctx.Err() != nil {
		return false
	}

	changed := false
	if p.snap.Status == StatusConnecting {
		p.snap.Status = StatusConnected
		changed = true
	}

	mode := p.settings.Settings().RegistrationMode
	for _, m := range page.Messages {
		if _, dup := p.seen[m.ID]; dup {
			continue
		}
		p.seen[m.ID] = struct{}{}
		p.snap.Processed++
		changed = true

		if mode == host.ModeDisabled || !MessageContainsKeyword(m.Text, keyword) {
			continue
		}
		p.register(mode, m)
	}

	if changed {
		p.publishLocked()
	}
	return true
}

func (p *Pipeline) register(mode host.RegistrationMode, m ChatMessage) {
	name := SanitizeName(m.AuthorName)
	if name == "" {
		name = "Unknown"
	}
	candidate := roster.Participant{ID: p.ids.Next(), Name: name, ChannelID: m.AuthorID}

	if mode == host.ModeApproval {
		if err := p.sink.Stage(candidate); err != nil {
			p.log.Debug("candidate not staged", zap.String("channel", m.AuthorID), zap.Error(err))
		}
		return
	}
	p.sink.Enqueue(candidate)
}

func (p *Pipeline) fail(ctx context.Context, epoch uint64, err error) {
	// Cancellation is not a failure: either Disable ran or the owner is
	// shutting down.
	if ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		return
	}
	p.failLocked(err)
}

func (p *Pipeline) failLocked(err error) {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.snap.Status = StatusError
	p.snap.Error = err.Error()
	p.log.Warn("ingestion stopped", zap.Error(err))
	p.sink.Notify(err.Error(), severityFor(err))
	p.publishLocked()
}

func (p *Pipeline) publishLocked() {
	p.sink.StatusChanged(p.snap)
}

func (p *Pipeline) interval(suggested time.Duration) time.Duration {
	if suggested <= 0 {
		suggested = p.opts.DefaultPollInterval
	}
	return max(suggested, p.opts.MinPollInterval)
}

func severityFor(err error) host.Severity {
	switch {
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrChatEnded):
		return host.SeverityWarning
	default:
		return host.SeverityError
	}
}
