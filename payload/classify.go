package payload

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind names the rule that accepted a payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindSimpleText
	KindTextWithAttachments
	KindHTMLOnly
	KindHTMLWithAttachments
)

func (k Kind) String() string {
	switch k {
	case KindSimpleText:
		return "SimpleText"
	case KindTextWithAttachments:
		return "TextWithAttachments"
	case KindHTMLOnly:
		return "HtmlOnly"
	case KindHTMLWithAttachments:
		return "HtmlWithAttachments"
	}
	return "Unknown"
}

// ParsedPayload is the flattened result of classifying a part tree.
type ParsedPayload struct {
	Kind        Kind
	Body        string
	Attachments []*Part
	IsTextMail  bool
}

// Rejection records why a single rule refused a payload.
type Rejection struct {
	Rule   Kind
	Reason string
}

// ClassificationError is returned by Classify when no rule accepts the payload.
type ClassificationError struct {
	Rejections []Rejection
}

func (e *ClassificationError) Error() string {
	lines := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		lines[i] = r.Rule.String() + ": " + r.Reason
	}
	return strings.Join(lines, "\n")
}

// outcome is what a rule hands back: a payload on accept, a reason on reject.
type outcome struct {
	payload *ParsedPayload
	reason  string
}

func accept(p *ParsedPayload) outcome { return outcome{payload: p} }

func reject(format string, args ...any) outcome {
	return outcome{reason: fmt.Sprintf(format, args...)}
}

type rule struct {
	kind  Kind
	match func(root *Part) outcome
}

// rules is ordered from the most specific shape to the most permissive one.
var rules = []rule{
	{KindSimpleText, matchSimpleText},
	{KindTextWithAttachments, matchTextWithAttachments},
	{KindHTMLOnly, matchHTMLOnly},
	{KindHTMLWithAttachments, matchHTMLWithAttachments},
}

// Classify runs the rules in order and returns the result of the first one that
// accepts root. When every rule rejects it returns a *ClassificationError holding
// all the reasons.
func Classify(root *Part) (*ParsedPayload, error) {
	if root == nil {
		return nil, &ClassificationError{Rejections: []Rejection{{Rule: KindUnknown, Reason: "payload is missing"}}}
	}
	var rejections []Rejection
	for _, r := range rules {
		out := r.match(root)
		if out.payload != nil {
			out.payload.Kind = r.kind
			return out.payload, nil
		}
		rejections = append(rejections, Rejection{Rule: r.kind, Reason: out.reason})
	}
	return nil, &ClassificationError{Rejections: rejections}
}

func matchSimpleText(root *Part) outcome {
	if !strings.HasPrefix(root.MimeType, "text/plain") || root.HasParts() || !root.HasData() {
		return reject("this is not text mail")
	}
	body, err := DecodeText(*root.Body.Data)
	if err != nil {
		return reject("text body is not base64: %v", err)
	}
	return accept(&ParsedPayload{Body: body, Attachments: []*Part{}, IsTextMail: true})
}

func matchTextWithAttachments(root *Part) outcome {
	if !strings.HasPrefix(root.MimeType, "multipart/mixed") {
		return reject("mimetype is not 'multipart/mixed'")
	}
	if out, ok := checkMultipartRoot(root); !ok {
		return out
	}
	if hasGrandchildren(root) {
		return reject("some part(s) have sub part(s)")
	}
	text := findTextChild(root.Parts)
	if text == nil {
		return reject("text part not found")
	}
	body, err := DecodeText(*text.Body.Data)
	if err != nil {
		return reject("text part is not base64: %v", err)
	}
	return accept(&ParsedPayload{
		Body:        body,
		Attachments: exceptPartID(root.Parts, text.PartID),
		IsTextMail:  true,
	})
}

func matchHTMLOnly(root *Part) outcome {
	if !strings.HasPrefix(root.MimeType, "multipart") {
		return reject("mimetype is not 'multipart'")
	}
	if out, ok := checkMultipartRoot(root); !ok {
		return out
	}
	if hasGrandchildren(root) {
		return reject("some part(s) have sub part(s)")
	}
	if len(root.Parts) != 2 {
		return reject("this mail has something other than text and html")
	}
	for _, p := range root.Parts {
		if p.Filename != "" {
			return reject("this mail has something other than text and html")
		}
	}
	// The html sibling is left undecoded; only the text alternative is kept.
	text := findTextChild(root.Parts)
	if text == nil {
		return reject("text part not found")
	}
	body, err := DecodeText(*text.Body.Data)
	if err != nil {
		return reject("text part is not base64: %v", err)
	}
	return accept(&ParsedPayload{Body: body, Attachments: []*Part{}, IsTextMail: false})
}

func matchHTMLWithAttachments(root *Part) outcome {
	if !strings.HasPrefix(root.MimeType, "multipart") {
		return reject("mimetype is not 'multipart'")
	}
	if out, ok := checkMultipartRoot(root); !ok {
		return out
	}
	var container *Part
	for _, p := range root.Parts {
		if p.HasParts() {
			container = p
			break
		}
	}
	if container == nil || len(container.Parts) != 2 {
		return reject("HTML & text part not found")
	}
	var text *Part
	for _, p := range container.Parts {
		if p.MimeType == "text/plain" {
			text = p
			break
		}
	}
	if text == nil || !text.HasData() {
		return reject("text body not found")
	}
	body, err := DecodeText(*text.Body.Data)
	if err != nil {
		return reject("text body is not base64: %v", err)
	}
	return accept(&ParsedPayload{
		Body:        body,
		Attachments: exceptPartID(root.Parts, container.PartID),
		IsTextMail:  false,
	})
}

// checkMultipartRoot applies the checks shared by every multipart rule: an
// empty root body and a parts list.
func checkMultipartRoot(root *Part) (outcome, bool) {
	if !root.Body.empty() {
		return reject("this may be text mail"), false
	}
	if !root.HasParts() {
		return reject("parts is not found or not an array"), false
	}
	return outcome{}, true
}

func hasGrandchildren(root *Part) bool {
	for _, p := range root.Parts {
		if p.HasParts() {
			return true
		}
	}
	return false
}

// findTextChild returns the first plain-text, unnamed child carrying data.
func findTextChild(parts []*Part) *Part {
	for _, p := range parts {
		if p.MimeType == "text/plain" && p.Filename == "" && p.HasData() {
			return p
		}
	}
	return nil
}

func exceptPartID(parts []*Part, partID string) []*Part {
	out := make([]*Part, 0, len(parts))
	for _, p := range parts {
		if p.PartID != partID {
			out = append(out, p)
		}
	}
	return out
}

// DecodeText decodes provider base64 (URL-safe or standard alphabet, padded or
// not) into UTF-8 text. Invalid UTF-8 sequences become U+FFFD.
func DecodeText(data string) (string, error) {
	b, err := DecodeBase64(data)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}

// DecodeBase64 accepts both base64 alphabets, with or without padding, and
// ignores embedded line breaks.
func DecodeBase64(data string) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, data)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
