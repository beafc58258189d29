package memory

import (
	"fmt"
	"strings"
)

// ThreadID derives the checkpoint thread identifier for a user's conversation.
// The format is stable: the same username and conversation always map to the
// same thread.
func ThreadID(username, conversationID string) string {
	return fmt.Sprintf("user_%s_%s", username, conversationID)
}

// ParseThreadID extracts the username and conversation ID from a thread ID.
// Conversation IDs may themselves contain underscores.
func ParseThreadID(threadID string) (username, conversationID string, ok bool) {
	parts := strings.SplitN(threadID, "_", 3)
	if len(parts) != 3 || parts[0] != "user" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
