package memory

// Turn roles as they appear on disk and over the wire to the provider layer.
const (
	RoleHuman     = "human"
	RoleAssistant = "ai"
)

// Turn is a single message in a conversation transcript.
// A Turn is immutable once appended to a Window.
type Turn struct {
	Role    string `json:"type"`
	Content string `json:"content"`
}

// Human returns a human-authored turn.
func Human(content string) Turn {
	return Turn{Role: RoleHuman, Content: content}
}

// Assistant returns an assistant turn.
func Assistant(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}
