package model

import "time"

// Message types carried in the "type" field of every SBLP body.
const (
	TypeRequest  = "REQUEST"
	TypeFinished = "FINISHED"
	TypeError    = "ERROR"
)

// BumpRequest is the inbound wire body. Guild, channel and user are 64-bit
// snowflakes serialized as decimal strings so JSON number precision never
// truncates them.
type BumpRequest struct {
	Type    string `json:"type"`
	Guild   string `json:"guild"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	// Message is the optional snowflake of the message that triggered the
	// bump on the sending side. Informational only.
	Message string `json:"message,omitempty"`
}

// ErrorCode classifies an SBLP error response. The set is closed; exactly
// one code applies to a given response.
type ErrorCode string

const (
	CodeMissingSetup ErrorCode = "MISSING_SETUP"
	CodeCooldown     ErrorCode = "COOLDOWN"
	CodeAutobump     ErrorCode = "AUTOBUMP"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeOther        ErrorCode = "OTHER"
)

// Known reports whether c is one of the closed set of protocol codes.
func (c ErrorCode) Known() bool {
	switch c {
	case CodeMissingSetup, CodeCooldown, CodeAutobump, CodeNotFound, CodeOther:
		return true
	}
	return false
}

// BumpFinishedResponse is the 200 body for a completed bump. NextBump is an
// absolute Unix-millisecond timestamp; Amount is -1 when the handler did not
// report a count.
type BumpFinishedResponse struct {
	Type     string `json:"type"`
	Response int64  `json:"response,string"`
	Amount   int    `json:"amount"`
	NextBump int64  `json:"nextBump"`
	Message  string `json:"message,omitempty"`
}

// NewBumpFinished builds a FINISHED response whose NextBump lies offsetMs
// milliseconds after now.
func NewBumpFinished(offsetMs int64, message string) BumpFinishedResponse {
	return BumpFinishedResponse{
		Type:     TypeFinished,
		Amount:   -1,
		NextBump: time.Now().Add(time.Duration(offsetMs) * time.Millisecond).UnixMilli(),
		Message:  message,
	}
}

// NextBumpTime returns NextBump as a time.Time.
func (r BumpFinishedResponse) NextBumpTime() time.Time {
	return time.UnixMilli(r.NextBump)
}

// BumpErrorResponse is the structured ERROR body.
type BumpErrorResponse struct {
	Type     string    `json:"type"`
	Response int64     `json:"response,string"`
	Code     ErrorCode `json:"code"`
	NextBump int64     `json:"nextBump"`
	Message  string    `json:"message"`
	Status   int       `json:"status,omitempty"`
	Success  bool      `json:"success"`
}

// NewBumpError builds an ERROR response. NextBump lies offsetMs milliseconds
// after now; pass 0 for "now".
func NewBumpError(code ErrorCode, offsetMs int64, message string) BumpErrorResponse {
	return BumpErrorResponse{
		Type:     TypeError,
		Code:     code,
		NextBump: time.Now().Add(time.Duration(offsetMs) * time.Millisecond).UnixMilli(),
		Message:  message,
	}
}

// CooldownResponse is the 429 body when a channel is still cooling down.
// NextBump carries the remaining cooldown in whole seconds, not a timestamp.
type CooldownResponse struct {
	Status   int       `json:"status"`
	Message  string    `json:"message"`
	Success  bool      `json:"success"`
	Code     ErrorCode `json:"code"`
	NextBump int       `json:"nextBump"`
}

// StatusResponse is the plain status/message/success body used for 503 and
// auth rejections.
type StatusResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// BumpRecord is one persisted finished bump.
type BumpRecord struct {
	ID        int64
	Guild     uint64
	Channel   uint64
	User      uint64
	Amount    int
	Origin    string
	CreatedAt time.Time
}

// BumpStats summarizes the bump history.
type BumpStats struct {
	Total    int64
	Channels int64
	LastBump time.Time
}
