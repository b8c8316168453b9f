// Package types holds the websocket wire frames.
//
// Client -> Server
//
//	Move:             from, from_index, to, to_index ("party" | "queue")
//	Add:              name, to (defaults to "queue")
//	Remove:           participant_id
//	ToggleFixed:      participant_id
//	Rotate:           {}
//	UpdateSettings:   settings { party_size, rotation_width, registration_mode }
//	EnableIngestion:  source (YouTube URL or video id), keyword (optional)
//	DisableIngestion: {}
//	Approve:          participant_id
//	Reject:           participant_id
//
// Server -> Client
//
//	StateSnapshot: version, state { party, queue }, preview { entering, leaving },
//	               settings, candidates, ingestion (on join only)
//	Notice:        version, notice { message, severity, at }
//	Ingestion:     version, ingestion { status, source, keyword, title, processed, error }
//	Error:         error
package types
