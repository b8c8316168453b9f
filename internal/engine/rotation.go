package engine

import (
	"slices"

	"github.com/samber/lo"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

// Preview is the swap the next rotation would perform.
type Preview struct {
	Entering []int `json:"entering"`
	Leaving  []int `json:"leaving"`
}

func (p Preview) IsEntering(id int) bool { return slices.Contains(p.Entering, id) }
func (p Preview) IsLeaving(id int) bool  { return slices.Contains(p.Leaving, id) }
func (p Preview) Empty() bool            { return len(p.Entering) == 0 }

// Predict returns who would swap on the next rotation: the earliest seated
// non-fixed party members leave and the front of the queue enters, at most
// rotationWidth of each. It reads its arguments only.
func Predict(party, queue []roster.Participant, rotationWidth int) Preview {
	if rotationWidth < 1 {
		rotationWidth = 1
	}

	rotatable := lo.Filter(party, func(p roster.Participant, _ int) bool { return !p.IsFixed })
	amount := min(rotationWidth, len(rotatable))
	available := min(len(queue), amount)
	if available <= 0 {
		return Preview{Entering: []int{}, Leaving: []int{}}
	}

	id := func(p roster.Participant, _ int) int { return p.ID }
	return Preview{
		Entering: lo.Map(queue[:available], id),
		Leaving:  lo.Map(rotatable[:available], id),
	}
}
