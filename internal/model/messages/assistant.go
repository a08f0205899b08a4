package messages

import "time"

// UtteranceEvent arriva dal front-end vocale: testo già riconosciuto.
type UtteranceEvent struct {
	SessionID string `json:"session_id"`
	// UtteranceID is unique per spoken request; redeliveries repeat it.
	UtteranceID string    `json:"utterance_id,omitempty"`
	Token       string    `json:"token"` // bearer token of the signed-in user, may be empty
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

// AssistantReplyEvent is published back to the session for playback.
type AssistantReplyEvent struct {
	ReplyID   string    `json:"reply_id"`
	SessionID string    `json:"session_id"`
	Intent    string    `json:"intent"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
