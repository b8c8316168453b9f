package store

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

type SessionRow struct {
	Code             string    `gorm:"primaryKey;size:16"`
	PartySize        int       `gorm:"not null"`
	RotationWidth    int       `gorm:"not null"`
	RegistrationMode string    `gorm:"size:16;not null;default:'disabled'"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`

	Participants []ParticipantRow `gorm:"foreignKey:SessionCode;references:Code;constraint:OnDelete:CASCADE"`
}

func (SessionRow) TableName() string { return "sessions" }

type ParticipantRow struct {
	SessionCode   string `gorm:"primaryKey;size:16"`
	ParticipantID int    `gorm:"primaryKey;autoIncrement:false"`
	Name          string `gorm:"size:64;not null"`
	IsFixed       bool   `gorm:"default:false"`
	ChannelID     string `gorm:"size:64;index"`
	List          string `gorm:"size:8;not null"`
	Position      int    `gorm:"index;not null"`
}

func (ParticipantRow) TableName() string { return "participants" }

func toRows(code string, settings host.Settings, s roster.State) (SessionRow, []ParticipantRow) {
	session := SessionRow{
		Code:             code,
		PartySize:        settings.PartySize,
		RotationWidth:    settings.RotationWidth,
		RegistrationMode: string(settings.RegistrationMode),
	}
	rows := append(listRows(code, roster.ListParty, s.Party), listRows(code, roster.ListQueue, s.Queue)...)
	return session, rows
}

func listRows(code string, l roster.List, members []roster.Participant) []ParticipantRow {
	return lo.Map(members, func(p roster.Participant, i int) ParticipantRow {
		return ParticipantRow{
			SessionCode:   code,
			ParticipantID: p.ID,
			Name:          p.Name,
			IsFixed:       p.IsFixed,
			ChannelID:     p.ChannelID,
			List:          string(l),
			Position:      i,
		}
	})
}

func fromRows(session SessionRow, rows []ParticipantRow) (host.Settings, roster.State) {
	settings := host.Settings{
		PartySize:        session.PartySize,
		RotationWidth:    session.RotationWidth,
		RegistrationMode: host.RegistrationMode(session.RegistrationMode),
	}

	sorted := append([]ParticipantRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	toParticipant := func(r ParticipantRow, _ int) roster.Participant {
		return roster.Participant{ID: r.ParticipantID, Name: r.Name, IsFixed: r.IsFixed, ChannelID: r.ChannelID}
	}
	inList := func(l roster.List) func(ParticipantRow, int) bool {
		return func(r ParticipantRow, _ int) bool { return r.List == string(l) }
	}
	st := roster.State{
		Party: lo.Map(lo.Filter(sorted, inList(roster.ListParty)), toParticipant),
		Queue: lo.Map(lo.Filter(sorted, inList(roster.ListQueue)), toParticipant),
	}
	return settings, st
}
