/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUrgency(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "normal"},
		{14, "normal"},
		{15, "warning"},
		{17, "warning"},
		{18, "danger"},
		{20, "danger"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, Urgency(tc.count, DefaultLimit), "count %d", tc.count)
	}
}

func TestEndReasonText(t *testing.T) {
	require.Equal(t, "You Win!", GuessRejected.Headline())
	require.Contains(t, GuessRejected.Summary(7, 20), "7 questions")
	require.Contains(t, GuessConfirmed.Summary(7, 20), "7/20")
	require.Contains(t, LimitReached.Summary(20, 20), "all 20 questions")
	require.Empty(t, NotEnded.Headline())
}

func TestPhaseScreen(t *testing.T) {
	require.Equal(t, RulesScreen, Idle.Screen())
	require.Equal(t, GameScreen, AwaitingModel.Screen())
	require.Equal(t, GameScreen, Guessing.Screen())
	require.Equal(t, EndScreen, Ended.Screen())
	require.Equal(t, "awaiting_user", AwaitingUser.String())
}
