package gmail

import "github.com/bassamadnan/gmailparse/payload"

// RawMessage is a message as returned by users.messages.get.
type RawMessage = payload.RawMessage

// Message is the normalized form of one Gmail message handed to callers.
type Message struct {
	ID            string       `json:"id"`
	ThreadID      string       `json:"threadId"`
	UnixTime      int64        `json:"unixTime"`
	UnixTimestamp string       `json:"unixTimestamp"`
	Subject       string       `json:"subject"`
	ContentType   string       `json:"contentType"`
	MessageID     string       `json:"messageId"`
	Snippet       string       `json:"snippet"`
	Date          string       `json:"date"`
	LabelIDs      []string     `json:"labelIds"`
	Body          string       `json:"body"`
	Body2         string       `json:"body2"`
	Attachments   []Attachment `json:"attachments"`
	IsTextMail    bool         `json:"isTextMail"`

	// Present only when the message carried the header.
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Cc         string `json:"cc,omitempty"`
	ReturnPath string `json:"returnPath,omitempty"`
}

// Attachment is a resolved attachment with its content already in base64.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Base64   string `json:"base64"`
}

// MessageRef is one hit of a message search.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Label is a mailbox label.
type Label struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	MessageListVisibility string      `json:"messageListVisibility,omitempty"`
	LabelListVisibility   string      `json:"labelListVisibility,omitempty"`
	Type                  string      `json:"type"`
	Color                 *LabelColor `json:"color,omitempty"`
}

// LabelColor is the display color of a user label.
type LabelColor struct {
	TextColor       string `json:"textColor"`
	BackgroundColor string `json:"backgroundColor"`
}
