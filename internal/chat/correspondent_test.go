package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgFrom(email, name string, ts time.Time) Message {
	return Message{
		ID:          email + ts.String(),
		ThreadID:    "thread-" + email,
		SenderEmail: email,
		SenderName:  name,
		Timestamp:   ts,
		Content:     "content",
		Status:      StatusRead,
	}
}

func TestGroupCorrespondents(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("groups by sender keeping latest message", func(t *testing.T) {
		messages := []Message{
			msgFrom("alice@example.com", "Alice", base),
			msgFrom("bob@example.com", "Bob", base.Add(time.Hour)),
			msgFrom("alice@example.com", "Alice", base.Add(2*time.Hour)),
		}
		got := GroupCorrespondents(messages, "me@example.com")

		require.Len(t, got, 2)
		// Sorted newest activity first.
		assert.Equal(t, "alice@example.com", got[0].Email)
		assert.Equal(t, 2, got[0].MessageCount)
		assert.True(t, got[0].LastActivity.Equal(base.Add(2*time.Hour)))
		assert.Equal(t, "thread-alice@example.com", got[0].ThreadID)
		assert.Equal(t, "bob@example.com", got[1].Email)
		assert.Equal(t, 1, got[1].MessageCount)
	})

	t.Run("unread counts accumulate per sender", func(t *testing.T) {
		first := msgFrom("alice@example.com", "Alice", base)
		first.Status = StatusDelivered
		second := msgFrom("alice@example.com", "Alice", base.Add(time.Hour))
		second.Status = StatusDelivered
		read := msgFrom("bob@example.com", "Bob", base)

		got := GroupCorrespondents([]Message{first, read, second}, "me@example.com")

		require.Len(t, got, 2)
		assert.Equal(t, "alice@example.com", got[0].Email)
		assert.Equal(t, 2, got[0].MessageCount)
		assert.Equal(t, 2, got[0].UnreadCount)
		assert.Equal(t, 0, got[1].UnreadCount)
	})

	t.Run("sender address is normalized", func(t *testing.T) {
		messages := []Message{
			msgFrom("Alice@Example.com ", "Alice", base),
			msgFrom("alice@example.com", "Alice", base.Add(time.Minute)),
		}
		got := GroupCorrespondents(messages, "")

		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].MessageCount)
	})

	t.Run("own messages excluded", func(t *testing.T) {
		messages := []Message{
			msgFrom("me@example.com", "You", base),
			msgFrom("alice@example.com", "Alice", base),
		}
		got := GroupCorrespondents(messages, "Me@Example.com")

		require.Len(t, got, 1)
		assert.Equal(t, "alice@example.com", got[0].Email)
	})

	t.Run("no session leaves self visible", func(t *testing.T) {
		messages := []Message{
			msgFrom("me@example.com", "You", base),
			msgFrom("alice@example.com", "Alice", base),
		}
		got := GroupCorrespondents(messages, "")
		assert.Len(t, got, 2)
	})

	t.Run("empty sender skipped", func(t *testing.T) {
		messages := []Message{
			msgFrom("", "", base),
			msgFrom("alice@example.com", "Alice", base),
		}
		got := GroupCorrespondents(messages, "")
		assert.Len(t, got, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, GroupCorrespondents(nil, "me@example.com"))
	})
}
