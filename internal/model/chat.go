package model

// AnonymousSessionID is used when a chat request carries no session id.
const AnonymousSessionID = "anonymous"

// ChatRequest is the /chat body. Input is a pointer so that an absent field
// can be told apart from an empty string, which is accepted.
type ChatRequest struct {
	Input     *string `json:"input"`
	SessionID *string `json:"session_id"`
}

type ChatResponse struct {
	Reply     string     `json:"reply"`
	Citations []Citation `json:"citations"`
}
