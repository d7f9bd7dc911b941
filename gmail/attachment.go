package gmail

import (
	"context"
	"fmt"

	"github.com/bassamadnan/gmailparse/payload"
)

// AttachmentFetcher downloads attachment content that Gmail only returned by
// reference. The result is the provider's base64 string.
type AttachmentFetcher interface {
	GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// AttachmentFetcherFunc adapts a function to AttachmentFetcher.
type AttachmentFetcherFunc func(ctx context.Context, messageID, attachmentID string) (string, error)

// GetAttachment calls f.
func (f AttachmentFetcherFunc) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	return f(ctx, messageID, attachmentID)
}

// AttachmentContent is either InlineContent or RemoteContent.
type AttachmentContent interface {
	resolve(ctx context.Context, f AttachmentFetcher, messageID string) (string, error)
}

// InlineContent is attachment data delivered with the message.
type InlineContent struct {
	Base64 string
}

func (c InlineContent) resolve(context.Context, AttachmentFetcher, string) (string, error) {
	return c.Base64, nil
}

// RemoteContent is an attachment that must be downloaded by id.
type RemoteContent struct {
	AttachmentID string
}

func (c RemoteContent) resolve(ctx context.Context, f AttachmentFetcher, messageID string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("attachment %s of message %s needs a fetcher", c.AttachmentID, messageID)
	}
	data, err := f.GetAttachment(ctx, messageID, c.AttachmentID)
	if err != nil {
		return "", fmt.Errorf("fetch attachment %s of message %s: %w", c.AttachmentID, messageID, err)
	}
	return data, nil
}

// MissingContentError reports an attachment part with neither inline data nor
// an attachment id.
type MissingContentError struct {
	PartID   string
	Filename string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("attachment part %q (%q) has neither data nor attachmentId", e.PartID, e.Filename)
}

// AttachmentDescriptor describes an attachment before its content is resolved.
type AttachmentDescriptor struct {
	Filename string
	MimeType string
	Size     int64
	Content  AttachmentContent
}

// NewAttachmentDescriptor builds a descriptor from a classifier attachment part.
// Inline data wins over an attachment id.
func NewAttachmentDescriptor(p *payload.Part) (AttachmentDescriptor, error) {
	d := AttachmentDescriptor{Filename: p.Filename, MimeType: p.MimeType, Size: p.Body.Size}
	switch {
	case p.Body.Data != nil && *p.Body.Data != "":
		d.Content = InlineContent{Base64: *p.Body.Data}
	case p.Body.AttachmentID != nil && *p.Body.AttachmentID != "":
		d.Content = RemoteContent{AttachmentID: *p.Body.AttachmentID}
	default:
		return AttachmentDescriptor{}, &MissingContentError{PartID: p.PartID, Filename: p.Filename}
	}
	return d, nil
}

// DescribeAttachments builds descriptors for parts, keeping their order.
func DescribeAttachments(parts []*payload.Part) ([]AttachmentDescriptor, error) {
	out := make([]AttachmentDescriptor, 0, len(parts))
	for _, p := range parts {
		d, err := NewAttachmentDescriptor(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Resolve returns the attachment with its content, downloading it through f
// when only a reference is held.
func (d AttachmentDescriptor) Resolve(ctx context.Context, f AttachmentFetcher, messageID string) (Attachment, error) {
	data, err := d.Content.resolve(ctx, f, messageID)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{Filename: d.Filename, MimeType: d.MimeType, Size: d.Size, Base64: data}, nil
}
