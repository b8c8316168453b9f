package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/party-queue/internal/engine"
	"github.com/DoyleJ11/party-queue/internal/roster"
	"github.com/DoyleJ11/party-queue/internal/session"
	"github.com/DoyleJ11/party-queue/internal/types"
)

var (
	ErrUnknownType = errors.New("unknown type")
	ErrBadList     = errors.New("list must be party or queue")
	ErrNoSettings  = errors.New("settings missing")
)

// ServerMessage converts a session update into its wire frame.
func ServerMessage(up session.Update) types.ServerMessage {
	switch up.Kind {
	case session.KindNotice:
		return types.ServerMessage{Type: "Notice", Version: up.Version, Notice: up.Notice}
	case session.KindIngestion:
		return types.ServerMessage{Type: "Ingestion", Version: up.Version, Ingestion: up.Ingestion}
	}
	st, preview, settings := up.State, up.Preview, up.Settings
	return types.ServerMessage{
		Type:       "StateSnapshot",
		Version:    up.Version,
		State:      &st,
		Preview:    &preview,
		Settings:   &settings,
		Candidates: up.Candidates,
		Ingestion:  up.Ingestion,
	}
}

func errorMessage(msg string) types.ServerMessage {
	return types.ServerMessage{Type: "Error", Error: msg}
}

// toCommand maps the engine-backed client messages. ok is false for types
// handled elsewhere.
func toCommand(m types.ClientMessage) (engine.Command, bool, error) {
	switch m.Type {
	case "Move":
		from, err := parseList(m.From)
		if err != nil {
			return engine.Command{}, true, err
		}
		to, err := parseList(m.To)
		if err != nil {
			return engine.Command{}, true, err
		}
		return engine.Move(from, m.FromIndex, to, m.ToIndex), true, nil
	case "Remove":
		return engine.Command{Type: engine.CmdRemove, ParticipantID: m.ParticipantID}, true, nil
	case "ToggleFixed":
		return engine.Command{Type: engine.CmdToggleFixed, ParticipantID: m.ParticipantID}, true, nil
	case "Rotate":
		return engine.Command{Type: engine.CmdRotate}, true, nil
	default:
		return engine.Command{}, false, nil
	}
}

func dispatch(ctx context.Context, s *session.Session, m types.ClientMessage) error {
	cmd, ok, err := toCommand(m)
	if err != nil {
		return err
	}
	if ok {
		res, err := s.Do(ctx, cmd)
		return resultErr(res, err)
	}

	switch m.Type {
	case "Add":
		to := roster.ListQueue
		if m.To != "" {
			if to, err = parseList(m.To); err != nil {
				return err
			}
		}
		res, err := s.Add(ctx, m.Name, to)
		return resultErr(res, err)
	case "UpdateSettings":
		if m.Settings == nil {
			return ErrNoSettings
		}
		return s.UpdateSettings(ctx, *m.Settings)
	case "EnableIngestion":
		return s.EnableIngestion(m.Source, m.Keyword)
	case "DisableIngestion":
		s.DisableIngestion()
		return nil
	case "Approve":
		res, err := s.Approve(ctx, m.ParticipantID)
		return resultErr(res, err)
	case "Reject":
		return s.Reject(ctx, m.ParticipantID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

// resultErr surfaces caller mistakes to the sender. Policy rejections are
// already broadcast as notices.
func resultErr(res session.Result, err error) error {
	if err != nil {
		return err
	}
	if errors.Is(res.Err, engine.ErrValidation) {
		return res.Err
	}
	return nil
}

func parseList(s string) (roster.List, error) {
	l := roster.List(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrBadList, s)
	}
	return l, nil
}
