package payload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPart(t *testing.T, js string) *Part {
	t.Helper()
	p := &Part{}
	require.NoError(t, json.Unmarshal([]byte(js), p))
	return p
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestClassifySimpleText(t *testing.T) {
	root := mustPart(t, `{"partId":"","mimeType":"text/plain","filename":"","headers":[],
		"body":{"size":5,"data":"aGVsbG8="}}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindSimpleText, got.Kind)
	assert.Equal(t, "hello", got.Body)
	assert.Empty(t, got.Attachments)
	assert.NotNil(t, got.Attachments)
	assert.True(t, got.IsTextMail)
}

func TestClassifySimpleTextRoundTrip(t *testing.T) {
	bodies := []string{"", "hello", "こんにちは\r\n世界", "line1\nline2\n\n", "emoji 😀 tab\t"}
	for _, want := range bodies {
		data := b64(want)
		root := &Part{MimeType: "text/plain; charset=UTF-8", Body: Body{Size: int64(len(want)), Data: &data}}

		got, err := Classify(root)
		require.NoError(t, err, "body %q", want)
		assert.Equal(t, want, got.Body)
		assert.Equal(t, data, b64(got.Body))
		assert.True(t, got.IsTextMail)
		assert.Empty(t, got.Attachments)
	}
}

func TestClassifySimpleTextURLSafeAlphabet(t *testing.T) {
	// "??>" encodes to "Pz8+" in the standard alphabet and "Pz8-" in the URL-safe one.
	data := "Pz8-"
	root := &Part{MimeType: "text/plain", Body: Body{Size: 3, Data: &data}}

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, "??>", got.Body)
}

func TestClassifyTextWithAttachments(t *testing.T) {
	root := mustPart(t, `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
		{"partId":"1","mimeType":"text/plain","filename":"","body":{"data":"aGk="}},
		{"partId":"2","mimeType":"image/png","filename":"a.png","body":{"size":100,"attachmentId":"ATT1"}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindTextWithAttachments, got.Kind)
	assert.Equal(t, "hi", got.Body)
	assert.True(t, got.IsTextMail)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "2", got.Attachments[0].PartID)
	require.NotNil(t, got.Attachments[0].Body.AttachmentID)
	assert.Equal(t, "ATT1", *got.Attachments[0].Body.AttachmentID)
}

func TestClassifyTextWithAttachmentsExcludesTextChild(t *testing.T) {
	for n := 2; n <= 6; n++ {
		for textAt := 0; textAt < n; textAt++ {
			root := &Part{MimeType: "multipart/mixed", Parts: []*Part{}}
			for i := 0; i < n; i++ {
				id := string(rune('0' + i))
				if i == textAt {
					data := b64("body")
					root.Parts = append(root.Parts, &Part{PartID: id, MimeType: "text/plain", Body: Body{Data: &data}})
					continue
				}
				att := "ATT" + id
				root.Parts = append(root.Parts, &Part{
					PartID: id, MimeType: "application/pdf", Filename: "f" + id + ".pdf",
					Body: Body{Size: 10, AttachmentID: &att},
				})
			}

			got, err := Classify(root)
			require.NoError(t, err)
			require.Len(t, got.Attachments, n-1)
			textID := string(rune('0' + textAt))
			prev := -1
			for _, a := range got.Attachments {
				assert.NotEqual(t, textID, a.PartID)
				idx := int(a.PartID[0] - '0')
				assert.Greater(t, idx, prev, "source order kept")
				prev = idx
			}
		}
	}
}

func TestClassifyTextWithAttachmentsTakesFirstTextChild(t *testing.T) {
	root := mustPart(t, `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"text/plain","filename":"","body":{"size":5,"data":"Zmlyc3Q="}},
		{"partId":"1","mimeType":"text/plain","filename":"","body":{"size":6,"data":"c2Vjb25k"}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindTextWithAttachments, got.Kind)
	assert.Equal(t, "first", got.Body)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "1", got.Attachments[0].PartID)
}

func TestClassifyPriorityTextWithAttachmentsBeforeHTMLOnly(t *testing.T) {
	// multipart/mixed with a text child and an unnamed html child satisfies both
	// TextWithAttachments and HtmlOnly; the earlier rule must win.
	root := mustPart(t, `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"text/plain","filename":"","body":{"data":"dGV4dA=="}},
		{"partId":"1","mimeType":"text/html","filename":"","body":{"data":"PGI+aHRtbDwvYj4="}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindTextWithAttachments, got.Kind)
	assert.True(t, got.IsTextMail)
	assert.Equal(t, "text", got.Body)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "1", got.Attachments[0].PartID)
}

func TestClassifyPriorityMixedWithNestedAlternative(t *testing.T) {
	// A nested alternative disqualifies TextWithAttachments, so the same mixed
	// envelope falls through to HtmlWithAttachments.
	root := mustPart(t, `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"multipart/alternative","filename":"","body":{"size":0},"parts":[
			{"partId":"0.0","mimeType":"text/plain","filename":"","body":{"data":"dGV4dA=="}},
			{"partId":"0.1","mimeType":"text/html","filename":"","body":{"data":"PHA+PC9wPg=="}}]},
		{"partId":"1","mimeType":"text/plain","filename":"","body":{"data":"bm90IG1l"}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindHTMLWithAttachments, got.Kind)
	assert.Equal(t, "text", got.Body)
	assert.False(t, got.IsTextMail)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "1", got.Attachments[0].PartID)
}

func TestClassifyHTMLOnly(t *testing.T) {
	root := mustPart(t, `{"mimeType":"multipart/alternative","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"text/plain","filename":"","body":{"data":"cGxhaW4="}},
		{"partId":"1","mimeType":"text/html","filename":"","body":{"data":"PGI+aHRtbDwvYj4="}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindHTMLOnly, got.Kind)
	assert.Equal(t, "plain", got.Body)
	assert.False(t, got.IsTextMail)
	assert.Empty(t, got.Attachments)
}

func TestClassifyHTMLOnlyIgnoresHTMLContent(t *testing.T) {
	// The html alternative is never decoded, so even garbage there is accepted.
	root := mustPart(t, `{"mimeType":"multipart/alternative","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"text/html","filename":"","body":{"size":3}},
		{"partId":"1","mimeType":"text/plain","filename":"","body":{"data":"cGxhaW4="}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindHTMLOnly, got.Kind)
	assert.Equal(t, "plain", got.Body)
}

func TestClassifyHTMLWithAttachments(t *testing.T) {
	root := mustPart(t, `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
		{"partId":"0","mimeType":"multipart/alternative","filename":"","body":{"size":0},"parts":[
			{"partId":"0.0","mimeType":"text/plain","filename":"","body":{"data":"Ym9keQ=="}},
			{"partId":"0.1","mimeType":"text/html","filename":"","body":{"data":"PHA+Ym9keTwvcD4="}}]},
		{"partId":"1","mimeType":"application/pdf","filename":"a.pdf","body":{"size":9,"attachmentId":"A1"}},
		{"partId":"2","mimeType":"image/png","filename":"b.png","body":{"size":4,"data":"iVBORw=="}}]}`)

	got, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, KindHTMLWithAttachments, got.Kind)
	assert.Equal(t, "body", got.Body)
	assert.False(t, got.IsTextMail)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "1", got.Attachments[0].PartID)
	assert.Equal(t, "2", got.Attachments[1].PartID)
}

func TestClassifyRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want map[Kind]string
	}{
		{
			name: "attachment only",
			json: `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
				{"partId":"0","mimeType":"image/png","filename":"a.png","body":{"size":1,"attachmentId":"X"}}]}`,
			want: map[Kind]string{
				KindSimpleText:          "this is not text mail",
				KindTextWithAttachments: "text part not found",
				KindHTMLOnly:            "this mail has something other than text and html",
				KindHTMLWithAttachments: "HTML & text part not found",
			},
		},
		{
			name: "text/html leaf",
			json: `{"mimeType":"text/html","body":{"size":4,"data":"PGI+"}}`,
			want: map[Kind]string{
				KindSimpleText:          "this is not text mail",
				KindTextWithAttachments: "mimetype is not 'multipart/mixed'",
				KindHTMLOnly:            "mimetype is not 'multipart'",
				KindHTMLWithAttachments: "mimetype is not 'multipart'",
			},
		},
		{
			name: "multipart with body data",
			json: `{"mimeType":"multipart/mixed","body":{"size":0,"data":""},"parts":[]}`,
			want: map[Kind]string{
				KindTextWithAttachments: "this may be text mail",
				KindHTMLOnly:            "this may be text mail",
				KindHTMLWithAttachments: "this may be text mail",
			},
		},
		{
			name: "multipart without parts",
			json: `{"mimeType":"multipart/alternative","body":{"size":0}}`,
			want: map[Kind]string{
				KindHTMLOnly:            "parts is not found or not an array",
				KindHTMLWithAttachments: "parts is not found or not an array",
			},
		},
		{
			name: "container with three children",
			json: `{"mimeType":"multipart/mixed","body":{"size":0},"parts":[
				{"partId":"0","mimeType":"multipart/alternative","filename":"","body":{"size":0},"parts":[
					{"partId":"0.0","mimeType":"text/plain","filename":"","body":{"data":"YQ=="}},
					{"partId":"0.1","mimeType":"text/html","filename":"","body":{"data":"YQ=="}},
					{"partId":"0.2","mimeType":"text/calendar","filename":"","body":{"data":"YQ=="}}]}]}`,
			want: map[Kind]string{
				KindTextWithAttachments: "some part(s) have sub part(s)",
				KindHTMLOnly:            "some part(s) have sub part(s)",
				KindHTMLWithAttachments: "HTML & text part not found",
			},
		},
		{
			name: "container text without data",
			json: `{"mimeType":"multipart/related","body":{"size":0},"parts":[
				{"partId":"0","mimeType":"multipart/alternative","filename":"","body":{"size":0},"parts":[
					{"partId":"0.0","mimeType":"text/plain","filename":"","body":{"size":0}},
					{"partId":"0.1","mimeType":"text/html","filename":"","body":{"data":"YQ=="}}]}]}`,
			want: map[Kind]string{
				KindHTMLWithAttachments: "text body not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(mustPart(t, tt.json))
			require.Error(t, err)
			assert.Nil(t, got)

			var cerr *ClassificationError
			require.True(t, errors.As(err, &cerr))
			require.Len(t, cerr.Rejections, 4)
			reasons := map[Kind]string{}
			for _, r := range cerr.Rejections {
				reasons[r.Rule] = r.Reason
			}
			for kind, reason := range tt.want {
				assert.Equal(t, reason, reasons[kind], kind.String())
			}
			assert.Contains(t, err.Error(), "HtmlWithAttachments: ")
		})
	}
}

func TestClassifyRejectsInvalidBase64(t *testing.T) {
	data := "***"
	_, err := Classify(&Part{MimeType: "text/plain", Body: Body{Size: 3, Data: &data}})

	var cerr *ClassificationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Rejections[0].Reason, "not base64")
}

func TestClassifyNilRoot(t *testing.T) {
	_, err := Classify(nil)
	var cerr *ClassificationError
	assert.True(t, errors.As(err, &cerr))
}

func TestDecodeTextReplacesInvalidUTF8(t *testing.T) {
	got, err := DecodeText(base64.StdEncoding.EncodeToString([]byte{'a', 0xff, 'b'}))
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", got)
}

func TestPartHeaderFirstMatchCaseInsensitive(t *testing.T) {
	p := &Part{Headers: []Header{
		{Name: "subject", Value: "first"},
		{Name: "Subject", Value: "second"},
	}}

	v, ok := p.Header("SUBJECT")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok = p.Header("Cc")
	assert.False(t, ok)
}
