package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a session's conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NormalizeRole maps the "human"/"ai" aliases used by some history writers
// onto the chat-completion roles.
func NormalizeRole(role string) string {
	switch role {
	case "human", "":
		return RoleUser
	case "ai":
		return RoleAssistant
	default:
		return role
	}
}
