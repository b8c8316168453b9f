package engine

import (
	"slices"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

func ContainsEvent(events []Event, eventType EventType) bool {
	return slices.ContainsFunc(events, func(e Event) bool { return e.Type == eventType })
}

func listOf(s *roster.State, l roster.List) *[]roster.Participant {
	if l == roster.ListParty {
		return &s.Party
	}
	return &s.Queue
}

func reorder(list *[]roster.Participant, from, to int) {
	item := (*list)[from]
	*list = slices.Delete(*list, from, from+1)
	*list = slices.Insert(*list, to, item)
}

func transfer(from, to *[]roster.Participant, fromIndex, toIndex int) {
	item := (*from)[fromIndex]
	*from = slices.Delete(*from, fromIndex, fromIndex+1)
	*to = slices.Insert(*to, toIndex, item)
}
