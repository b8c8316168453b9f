package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/hub"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/roster"
	"github.com/DoyleJ11/party-queue/internal/session"
)

const maxCodeAttempts = 8

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type sessionResponse struct {
	Code       string               `json:"code"`
	Version    int                  `json:"version"`
	Clients    int                  `json:"clients"`
	State      roster.State         `json:"state"`
	Preview    engine.Preview       `json:"preview"`
	Settings   host.Settings        `json:"settings"`
	Candidates []roster.Participant `json:"candidates"`
	Ingestion  ingest.Snapshot      `json:"ingestion"`
}

type moveRequest struct {
	From      roster.List `json:"from"`
	FromIndex int         `json:"from_index"`
	To        roster.List `json:"to"`
	ToIndex   int         `json:"to_index"`
}

type moveResponse struct {
	Version int            `json:"version"`
	State   roster.State   `json:"state"`
	Preview engine.Preview `json:"preview"`
	Error   string         `json:"error,omitempty"`
	Saved   bool           `json:"saved"`
}

type ingestionRequest struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"`
	Keyword string `json:"keyword"`
}

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			_, err = h.Create(r.Context(), code)
			if errors.Is(err, hub.ErrCodeTaken) {
				log.Debug("collision on code, regenerating", zap.String("session", code))
				continue
			}
			if err != nil {
				log.Error("create session", zap.Error(err))
				http.Error(w, "failed to create session", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, struct {
				Code string `json:"code"`
			}{Code: code})
			return
		}
		http.Error(w, "failed to allocate session code", http.StatusServiceUnavailable)
	}
}

func GetSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return withSession(h, log, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		v, err := s.View(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Code:       v.Code,
			Version:    v.Version,
			Clients:    v.NumClients,
			State:      v.State,
			Preview:    v.Preview,
			Settings:   v.Settings,
			Candidates: v.Candidates,
			Ingestion:  v.Ingestion,
		})
	})
}

func GetPreview(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return withSession(h, log, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		p, err := s.Preview(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
}

// PostMove answers 400 for malformed moves, 409 when the move breaks a
// party rule and 200 otherwise, with the resulting state in every case.
func PostMove(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return withSession(h, log, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req moveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := s.Move(r.Context(), req.From, req.FromIndex, req.To, req.ToIndex)
		if err != nil {
			sessionError(w, err)
			return
		}

		body := moveResponse{Version: res.Version, State: res.State, Preview: res.Preview, Saved: res.PersistErr == nil}
		status := http.StatusOK
		if res.Err != nil {
			body.Error = res.Err.Error()
			status = http.StatusConflict
			if errors.Is(res.Err, engine.ErrValidation) {
				status = http.StatusBadRequest
			}
		}
		writeJSON(w, status, body)
	})
}

func GetIngestion(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return withSession(h, log, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeJSON(w, http.StatusOK, s.Ingestion())
	})
}

func PutIngestion(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return withSession(h, log, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req ingestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if !req.Enabled {
			s.DisableIngestion()
			writeJSON(w, http.StatusOK, s.Ingestion())
			return
		}

		err := s.EnableIngestion(req.Source, req.Keyword)
		switch {
		case errors.Is(err, ingest.ErrNoSource):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, ingest.ErrUnresolvableSource):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			writeJSON(w, http.StatusAccepted, s.Ingestion())
		}
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func withSession(h *hub.Hub, log *zap.Logger, next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		s, err := h.Get(r.Context(), code)
		if errors.Is(err, hub.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("get session", zap.String("session", code), zap.Error(err))
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}
		next(w, r, s)
	}
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrClosed) {
		http.Error(w, "session closed", http.StatusGone)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
