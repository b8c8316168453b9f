package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/party-queue/internal/roster"
)

func TestPredict(t *testing.T) {
	cases := []struct {
		name         string
		party        []roster.Participant
		queue        []roster.Participant
		width        int
		wantLeaving  []int
		wantEntering []int
	}{
		{
			name:         "owner stays, first seated member leaves",
			party:        []roster.Participant{owner(), member(1)},
			queue:        []roster.Participant{member(2), member(3)},
			width:        1,
			wantLeaving:  []int{1},
			wantEntering: []int{2},
		},
		{
			name:         "bounded by queue length",
			party:        []roster.Participant{owner(), member(1), member(2), member(3)},
			queue:        []roster.Participant{member(4)},
			width:        3,
			wantLeaving:  []int{1},
			wantEntering: []int{4},
		},
		{
			name:         "bounded by rotatable members",
			party:        []roster.Participant{owner(), {ID: 1, IsFixed: true}, member(2)},
			queue:        []roster.Participant{member(3), member(4), member(5)},
			width:        3,
			wantLeaving:  []int{2},
			wantEntering: []int{3},
		},
		{
			name:         "empty queue",
			party:        []roster.Participant{owner(), member(1)},
			width:        2,
			wantLeaving:  []int{},
			wantEntering: []int{},
		},
		{
			name:         "only fixed members seated",
			party:        []roster.Participant{owner()},
			queue:        []roster.Participant{member(1)},
			width:        1,
			wantLeaving:  []int{},
			wantEntering: []int{},
		},
		{
			name:         "zero width treated as one",
			party:        []roster.Participant{owner(), member(1), member(2)},
			queue:        []roster.Participant{member(3), member(4)},
			width:        0,
			wantLeaving:  []int{1},
			wantEntering: []int{3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Predict(tc.party, tc.queue, tc.width)
			require.Equal(t, tc.wantLeaving, got.Leaving)
			require.Equal(t, tc.wantEntering, got.Entering)
			for _, id := range tc.wantLeaving {
				require.True(t, got.IsLeaving(id))
			}
		})
	}
}

func TestPredict_IsPure(t *testing.T) {
	party := []roster.Participant{owner(), member(1), member(2)}
	queue := []roster.Participant{member(3), member(4)}
	partyBefore := append([]roster.Participant(nil), party...)
	queueBefore := append([]roster.Participant(nil), queue...)

	first := Predict(party, queue, 2)
	second := Predict(party, queue, 2)

	require.Equal(t, first, second)
	require.Equal(t, partyBefore, party)
	require.Equal(t, queueBefore, queue)
}
