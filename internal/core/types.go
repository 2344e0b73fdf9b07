package core

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	CuuriName          = "cuuri"
	CuuriUserAgent     = "cuuri/0.3"
	CuuriRepositoryURL = "https://github.com/sandevgo/cuuri"
	CuuriVersion       = "0.3.0"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ImageURL holds either a remote reference or an inline data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a message's content array. Exactly one of
// Text or ImageURL is meaningful, selected by Type.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// MarshalJSON keeps the text field present for text parts, even when empty.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	if p.Type == PartText {
		return json.Marshal(struct {
			Type PartType `json:"type"`
			Text string   `json:"text"`
		}{p.Type, p.Text})
	}
	type plain ContentPart
	return json.Marshal(plain(p))
}

// ContextMessage is one role-tagged message sent to the completion service.
type ContextMessage struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"content"`
}

// Text joins the text parts of the message.
func (m ContextMessage) Text() string {
	var s string
	for _, p := range m.Parts {
		if p.Type == PartText {
			s += p.Text
		}
	}
	return s
}

// Image is an attachment for the new user message.
type Image struct {
	MimeType string
	Data     []byte
}

// DataURL returns the image inlined as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// UserInput is the new turn appended after the history.
type UserInput struct {
	Text   string
	Images []Image
}

// Exchange is one persisted question/answer pair.
type Exchange struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Exchanges    int       `json:"exchanges"`
	LastActivity time.Time `json:"last_activity"`
}

type CompletionRequest struct {
	Model      string           `json:"model"`
	Messages   []ContextMessage `json:"messages"`
	Stream     bool             `json:"stream"`
	Credential string           `json:"-"`
}

type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

// SubmitRequest is the input of one submit-and-stream call.
type SubmitRequest struct {
	SessionID  string
	Text       string
	Images     []Image
	Model      string
	Credential string
}

// Answer is the outcome of a finished stream.
type Answer struct {
	Text      string
	CreatedAt time.Time
	// Saved is false when the exchange was not written to the store.
	Saved     bool
	Fragments int
}
