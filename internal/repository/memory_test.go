package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	turns, err := m.GetConversationTurnCount(ctx, "abc")
	require.NoError(t, err)
	require.Zero(t, turns)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.SaveCompletedTurn(ctx, "abc", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), i))
	}

	turns, err = m.GetConversationTurnCount(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, 5, turns)

	history, err := m.GetHistory(ctx, "abc", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "q4", history[0].Message)
	require.Equal(t, "a5", history[1].Reply)
	require.Equal(t, statusComplete, history[1].Status)

	all, err := m.GetHistory(ctx, "abc", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	other, err := m.GetHistory(ctx, "other", 10)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestMemory_HistoryIsACopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveCompletedTurn(ctx, "abc", "q", "a", 1))

	history, err := m.GetHistory(ctx, "abc", 10)
	require.NoError(t, err)
	history[0].Message = "mutated"

	again, err := m.GetHistory(ctx, "abc", 10)
	require.NoError(t, err)
	require.Equal(t, "q", again[0].Message)
}

func TestMemory_RequiresConversationID(t *testing.T) {
	require.Error(t, NewMemory().SaveCompletedTurn(context.Background(), "", "q", "a", 1))
}
