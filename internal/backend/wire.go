package backend

import "github.com/flemzord/coffee/pkg/message"

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCreated = "created"
	StatusExists  = "exists"
)

// SendRequest is the body of POST /api/messages.
type SendRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// SyncRequest is the body of POST /api/users/sync.
type SyncRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// SaveProfileRequest is the body of POST /api/tools/save_profile_section.
type SaveProfileRequest struct {
	UserID     string             `json:"user_id"`
	Attributes message.Attributes `json:"attributes"`
}

// ThreadRequest is the body of POST /api/threads.
type ThreadRequest struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
	Title    string `json:"title,omitempty"`
}

// Response is the envelope of the tool and user endpoints.
type Response struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Profile *message.Profile `json:"profile"`
	Matches []message.Match  `json:"matches,omitempty"`
}
