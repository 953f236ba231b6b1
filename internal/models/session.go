package models

// Chat roles as rendered in the conversation log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in the applicant conversation. The log is
// append-only and lives only as long as the current flow run.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ManagerCredential is the bearer bundle issued at manager login and
// attached to every review call.
type ManagerCredential struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
