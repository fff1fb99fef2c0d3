package chat

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAddAndMessages(t *testing.T) {
	log := NewLog(100)
	pollID := uuid.New()

	msg := log.Add(pollID, "sess-1", "Alice", "  hello  ")
	require.Equal(t, "hello", msg.Message)
	require.Equal(t, pollID, msg.PollID)
	require.NotEqual(t, uuid.Nil, msg.ID)
	require.False(t, msg.Timestamp.IsZero())

	got := log.Messages(pollID, 0)
	require.Len(t, got, 1)
	require.Equal(t, msg.ID, got[0].ID)
}

func TestCapEvictsOldest(t *testing.T) {
	log := NewLog(3)
	pollID := uuid.New()

	for i := 0; i < 5; i++ {
		log.Add(pollID, "sess-1", "Alice", fmt.Sprintf("msg-%d", i))
	}

	got := log.Messages(pollID, 0)
	require.Len(t, got, 3)
	require.Equal(t, "msg-2", got[0].Message)
	require.Equal(t, "msg-4", got[2].Message)
}

func TestMessagesLimit(t *testing.T) {
	log := NewLog(100)
	pollID := uuid.New()

	for i := 0; i < 10; i++ {
		log.Add(pollID, "sess-1", "Alice", fmt.Sprintf("msg-%d", i))
	}

	got := log.Messages(pollID, 4)
	require.Len(t, got, 4)
	require.Equal(t, "msg-6", got[0].Message)
	require.Equal(t, "msg-9", got[3].Message)
}

func TestClear(t *testing.T) {
	log := NewLog(100)
	pollID := uuid.New()
	other := uuid.New()

	log.Add(pollID, "sess-1", "Alice", "a")
	log.Add(other, "sess-2", "Bob", "b")

	log.Clear(pollID)
	require.Empty(t, log.Messages(pollID, 0))
	require.Len(t, log.Messages(other, 0), 1)
}

func TestPollsAreIsolated(t *testing.T) {
	log := NewLog(100)
	first := uuid.New()
	second := uuid.New()

	log.Add(first, "sess-1", "Alice", "for first")
	log.Add(second, "sess-2", "Bob", "for second")

	require.Len(t, log.Messages(first, 0), 1)
	require.Equal(t, "for first", log.Messages(first, 0)[0].Message)
	require.Len(t, log.Messages(second, 0), 1)
}
