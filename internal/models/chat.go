package models

import "time"

// ChatMessage represents one conversation turn: a question submitted by the user and the response
// the remote assistant produced for it. Question, Category and Timestamp are captured at submission
// and never change. Response is written exactly once, when the submission reaches a terminal State.
type ChatMessage struct {
	ID        string
	Question  string
	Response  string
	Category  string
	Timestamp time.Time

	State MessageState
}

// MessageState tracks where a message is in its submission lifecycle.
type MessageState string

const (
	// MessageStatePending means the request was issued but no text has been received yet.
	MessageStatePending MessageState = "pending"
	// MessageStateStreaming means text is arriving and is held in the session's streaming slot.
	MessageStateStreaming MessageState = "streaming"
	// MessageStateCommitted means the stream ended and Response holds the full text.
	MessageStateCommitted MessageState = "committed"
	// MessageStateFailed means the submission failed and Response holds a diagnostic.
	MessageStateFailed MessageState = "failed"
)

// Terminal reports whether the state is final, i.e. the response has been written.
func (s MessageState) Terminal() bool {
	return s == MessageStateCommitted || s == MessageStateFailed
}

// StreamingSlot holds the text accumulated so far for the message currently in flight. It has no
// identity of its own and is addressed by the ID of the message it will populate. A zero slot means
// nothing is streaming.
type StreamingSlot struct {
	MessageID string
	Text      string
}

// Active reports whether the slot belongs to an in-flight message.
func (s StreamingSlot) Active() bool {
	return s.MessageID != ""
}

// Question is the payload sent to the remote inference endpoint for one submission.
type Question struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Language string `json:"language"`
}
