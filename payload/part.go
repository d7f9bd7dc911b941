// Package payload turns the nested part tree Gmail returns for a message into a flat
// body + attachment list.
package payload

import "strings"

// Header is a single name/value pair from a part's header list.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Body is the content slot of a part. Data and AttachmentID are nil when the
// provider omitted them.
type Body struct {
	Size         int64   `json:"size"`
	Data         *string `json:"data,omitempty"`
	AttachmentID *string `json:"attachmentId,omitempty"`
}

// Part is one node of the provider's MIME structure. A nil Parts slice means the
// node has no children; an empty non-nil slice counts as present.
type Part struct {
	PartID   string   `json:"partId"`
	MimeType string   `json:"mimeType"`
	Filename string   `json:"filename"`
	Headers  []Header `json:"headers"`
	Body     Body     `json:"body"`
	Parts    []*Part  `json:"parts,omitempty"`
}

// RawMessage is a message exactly as users.messages.get describes it.
type RawMessage struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"threadId"`
	LabelIDs     []string `json:"labelIds"`
	Snippet      string   `json:"snippet"`
	HistoryID    string   `json:"historyId"`
	InternalDate string   `json:"internalDate"`
	SizeEstimate int64    `json:"sizeEstimate"`
	Payload      *Part    `json:"payload"`
}

// HasParts reports whether the parts field was present.
func (p *Part) HasParts() bool {
	return p.Parts != nil
}

// HasData reports whether the body carries inline data.
func (p *Part) HasData() bool {
	return p.Body.Data != nil
}

// Header returns the value of the first header whose name matches key
// case-insensitively.
func (p *Part) Header(key string) (string, bool) {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, key) {
			return h.Value, true
		}
	}
	return "", false
}

func (b Body) empty() bool {
	return b.Size == 0 && b.Data == nil
}
