package types

import (
	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

// ClientMessage is one websocket frame from a client. Which fields are
// read depends on Type.
type ClientMessage struct {
	Type          string         `json:"type"`
	From          string         `json:"from,omitempty"`
	FromIndex     int            `json:"from_index,omitempty"`
	To            string         `json:"to,omitempty"`
	ToIndex       int            `json:"to_index,omitempty"`
	Name          string         `json:"name,omitempty"`
	ParticipantID int            `json:"participant_id,omitempty"`
	Settings      *host.Settings `json:"settings,omitempty"`
	Source        string         `json:"source,omitempty"`
	Keyword       string         `json:"keyword,omitempty"`
}

type ServerMessage struct {
	Type       string               `json:"type"` // "StateSnapshot" | "Notice" | "Ingestion" | "Error"
	Version    int                  `json:"version,omitempty"`
	State      *roster.State        `json:"state,omitempty"`
	Preview    *engine.Preview      `json:"preview,omitempty"`
	Settings   *host.Settings       `json:"settings,omitempty"`
	Candidates []roster.Participant `json:"candidates,omitempty"`
	Notice     *host.Notice         `json:"notice,omitempty"`
	Ingestion  *ingest.Snapshot     `json:"ingestion,omitempty"`
	Error      string               `json:"error,omitempty"`
}
