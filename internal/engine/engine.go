package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

// ErrValidation marks caller bugs such as stale indices. These are logged,
// never shown to users.
var ErrValidation = errors.New("invalid command")

var ErrInvalidIndex = fmt.Errorf("%w: index out of range", ErrValidation)
var ErrUnknownList = fmt.Errorf("%w: unknown list", ErrValidation)
var ErrInvalidRules = fmt.Errorf("%w: party size and rotation width must be at least 1", ErrValidation)

var ErrFixedParticipant = errors.New("fixed participant cannot leave the party")
var ErrCapacityExceeded = errors.New("party is full")
var ErrOwnerPinned = errors.New("session owner is always fixed")
var ErrNotInParty = errors.New("only party members can be fixed")
var ErrParticipantNotFound = errors.New("participant not found")
var ErrDuplicateParticipant = errors.New("participant id already in use")
var ErrAlreadyRegistered = errors.New("chat author is already registered")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Rules struct {
	PartySize     int
	RotationWidth int
}

type CommandType string

const (
	CmdMove        CommandType = "Move"
	CmdAdd         CommandType = "Add"
	CmdRemove      CommandType = "Remove"
	CmdToggleFixed CommandType = "ToggleFixed"
	CmdRotate      CommandType = "Rotate"
)

/*
	CmdMove        -> EvtParticipantMoved (none when source == destination)
	CmdAdd         -> EvtParticipantAdded
	CmdRemove      -> EvtParticipantRemoved
	CmdToggleFixed -> EvtFixedToggled
	CmdRotate      -> EvtRotated (none when nobody can swap)
*/

type Command struct {
	Type CommandType

	// Move
	From      roster.List
	FromIndex int
	To        roster.List
	ToIndex   int

	// Add appends Participant to To.
	Participant roster.Participant

	// Remove, ToggleFixed
	ParticipantID int
}

func Move(from roster.List, fromIndex int, to roster.List, toIndex int) Command {
	return Command{Type: CmdMove, From: from, FromIndex: fromIndex, To: to, ToIndex: toIndex}
}

type EventType string

const (
	EvtParticipantMoved   EventType = "ParticipantMoved"
	EvtParticipantAdded   EventType = "ParticipantAdded"
	EvtParticipantRemoved EventType = "ParticipantRemoved"
	EvtFixedToggled       EventType = "FixedToggled"
	EvtRotated            EventType = "Rotated"
)

type Event struct {
	Type          EventType
	ParticipantID int
	From          roster.List
	To            roster.List
	Index         int
	Preview       Preview // Rotated only
}

// Apply validates cmd against s and returns the resulting state. On error
// the returned state is s, unchanged. A nil event slice with a nil error is
// a no-op: callers must not persist or broadcast it.
func Apply(s roster.State, rules Rules, cmd Command) ([]Event, roster.State, error) {
	if rules.PartySize < 1 || rules.RotationWidth < 1 {
		return nil, s, ErrInvalidRules
	}

	switch cmd.Type {
	case CmdMove:
		return applyMove(s, rules, cmd)

	case CmdAdd:
		p := cmd.Participant
		if !cmd.To.Valid() {
			return nil, s, ErrUnknownList
		}
		if _, _, taken := s.Find(p.ID); taken {
			return nil, s, ErrDuplicateParticipant
		}
		if s.HasChannel(p.ChannelID) {
			return nil, s, ErrAlreadyRegistered
		}
		if cmd.To == roster.ListParty && len(s.Party) >= rules.PartySize {
			return nil, s, ErrCapacityExceeded
		}
		if cmd.To == roster.ListQueue && p.IsFixed {
			return nil, s, ErrFixedParticipant
		}

		newState := s.Clone()
		if cmd.To == roster.ListParty {
			newState.Party = append(newState.Party, p)
		} else {
			newState.Queue = append(newState.Queue, p)
		}
		index := len(newState.Members(cmd.To)) - 1
		return []Event{{Type: EvtParticipantAdded, ParticipantID: p.ID, To: cmd.To, Index: index}}, newState, nil

	case CmdRemove:
		list, i, ok := s.Find(cmd.ParticipantID)
		if !ok {
			return nil, s, ErrParticipantNotFound
		}
		if s.Members(list)[i].IsFixed {
			return nil, s, ErrFixedParticipant
		}

		newState := s.Clone()
		if list == roster.ListParty {
			newState.Party = slices.Delete(newState.Party, i, i+1)
		} else {
			newState.Queue = slices.Delete(newState.Queue, i, i+1)
		}
		return []Event{{Type: EvtParticipantRemoved, ParticipantID: cmd.ParticipantID, From: list, Index: i}}, newState, nil

	case CmdToggleFixed:
		if cmd.ParticipantID == roster.OwnerID {
			return nil, s, ErrOwnerPinned
		}
		list, i, ok := s.Find(cmd.ParticipantID)
		if !ok {
			return nil, s, ErrParticipantNotFound
		}
		// Fixed members may never sit in the queue, so only the party can pin.
		if list != roster.ListParty {
			return nil, s, ErrNotInParty
		}

		newState := s.Clone()
		newState.Party[i].IsFixed = !newState.Party[i].IsFixed
		return []Event{{Type: EvtFixedToggled, ParticipantID: cmd.ParticipantID, From: list, Index: i}}, newState, nil

	case CmdRotate:
		preview := Predict(s.Party, s.Queue, rules.RotationWidth)
		if preview.Empty() {
			return nil, s, nil
		}
		return []Event{{Type: EvtRotated, Preview: preview}}, rotate(s, preview), nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyMove(s roster.State, rules Rules, cmd Command) ([]Event, roster.State, error) {
	if !cmd.From.Valid() || !cmd.To.Valid() {
		return nil, s, ErrUnknownList
	}

	src := s.Members(cmd.From)
	if cmd.FromIndex < 0 || cmd.FromIndex >= len(src) {
		return nil, s, ErrInvalidIndex
	}

	// Within a list the destination is a slot of the list after removal;
	// across lists it may be one past the end of the destination.
	destLen := len(s.Members(cmd.To))
	if cmd.From == cmd.To {
		destLen--
	}
	if cmd.ToIndex < 0 || cmd.ToIndex > destLen {
		return nil, s, ErrInvalidIndex
	}

	if cmd.From == cmd.To && cmd.FromIndex == cmd.ToIndex {
		return nil, s, nil
	}

	moving := src[cmd.FromIndex]
	switch {
	case cmd.From == roster.ListParty && cmd.To == roster.ListQueue:
		if moving.IsFixed {
			return nil, s, ErrFixedParticipant
		}
	case cmd.From == roster.ListQueue && cmd.To == roster.ListParty:
		// Capacity is judged on the party as it is now, before the insert.
		if len(s.Party) >= rules.PartySize {
			return nil, s, ErrCapacityExceeded
		}
	}

	newState := s.Clone()
	if cmd.From == cmd.To {
		reorder(listOf(&newState, cmd.From), cmd.FromIndex, cmd.ToIndex)
	} else {
		transfer(listOf(&newState, cmd.From), listOf(&newState, cmd.To), cmd.FromIndex, cmd.ToIndex)
	}

	return []Event{{
		Type:          EvtParticipantMoved,
		ParticipantID: moving.ID,
		From:          cmd.From,
		To:            cmd.To,
		Index:         cmd.ToIndex,
	}}, newState, nil
}

// rotate removes the leaving members from the party and seats the entering
// members, taken from the front of the queue, at the end of the party.
func rotate(s roster.State, preview Preview) roster.State {
	newState := s.Clone()
	newState.Party = slices.DeleteFunc(newState.Party, func(p roster.Participant) bool {
		return preview.IsLeaving(p.ID)
	})
	entering := newState.Queue[:len(preview.Entering)]
	newState.Party = append(newState.Party, entering...)
	newState.Queue = slices.Clone(newState.Queue[len(preview.Entering):])
	return newState
}
