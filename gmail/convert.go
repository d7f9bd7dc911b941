package gmail

import (
	"strconv"

	"github.com/bassamadnan/gmailparse/payload"
	gm "google.golang.org/api/gmail/v1"
)

// rawFromAPI maps the generated API type onto the provider's wire shape.
func rawFromAPI(m *gm.Message) *RawMessage {
	raw := &RawMessage{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		LabelIDs:     append([]string{}, m.LabelIds...),
		Snippet:      m.Snippet,
		HistoryID:    strconv.FormatUint(m.HistoryId, 10),
		InternalDate: strconv.FormatInt(m.InternalDate, 10),
		SizeEstimate: m.SizeEstimate,
	}
	if m.Payload != nil {
		raw.Payload = partFromAPI(m.Payload)
	}
	return raw
}

func partFromAPI(mp *gm.MessagePart) *payload.Part {
	p := &payload.Part{
		PartID:   mp.PartId,
		MimeType: mp.MimeType,
		Filename: mp.Filename,
		Headers:  make([]payload.Header, 0, len(mp.Headers)),
	}
	for _, h := range mp.Headers {
		if h != nil {
			p.Headers = append(p.Headers, payload.Header{Name: h.Name, Value: h.Value})
		}
	}
	if mp.Body != nil {
		p.Body.Size = mp.Body.Size
		// The client drops empty strings, so "" and absent are the same here.
		if mp.Body.Data != "" {
			data := mp.Body.Data
			p.Body.Data = &data
		}
		if mp.Body.AttachmentId != "" {
			id := mp.Body.AttachmentId
			p.Body.AttachmentID = &id
		}
	}
	if mp.Parts != nil {
		p.Parts = make([]*payload.Part, 0, len(mp.Parts))
		for _, child := range mp.Parts {
			if child != nil {
				p.Parts = append(p.Parts, partFromAPI(child))
			}
		}
	}
	return p
}

func labelFromAPI(l *gm.Label) Label {
	out := Label{
		ID:                    l.Id,
		Name:                  l.Name,
		MessageListVisibility: l.MessageListVisibility,
		LabelListVisibility:   l.LabelListVisibility,
		Type:                  l.Type,
	}
	if l.Color != nil {
		out.Color = &LabelColor{TextColor: l.Color.TextColor, BackgroundColor: l.Color.BackgroundColor}
	}
	return out
}
