package services

import (
	"encoding/base64"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()
	data, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	return string(data)
}

func TestBuildRawMessage_Headers(t *testing.T) {
	svc := NewComposeService(nil)

	raw, err := svc.BuildRawMessage(&Composition{
		To:       []string{"jane@example.com", "bob@example.com"},
		Cc:       []string{"cc@example.com"},
		Subject:  "Status update",
		BodyHTML: "<p>All green.</p>",
	})
	require.NoError(t, err)

	msg := decodeRaw(t, raw)
	assert.Contains(t, msg, "To: jane@example.com, bob@example.com\r\n")
	assert.Contains(t, msg, "Cc: cc@example.com\r\n")
	assert.NotContains(t, msg, "Bcc:")
	assert.Contains(t, msg, "Subject: Status update\r\n")
	assert.Contains(t, msg, "MIME-Version: 1.0\r\n")
	assert.Contains(t, msg, `Content-Type: multipart/mixed; boundary="boundary_`)
	assert.Contains(t, msg, `Content-Type: text/html; charset="utf-8"`)
	assert.Contains(t, msg, "<p>All green.</p>")
}

func TestBuildRawMessage_BoundaryFormat(t *testing.T) {
	svc := NewComposeService(nil)

	raw, err := svc.BuildRawMessage(&Composition{
		To:       []string{"x@example.com"},
		Subject:  "s",
		BodyHTML: "<p>b</p>",
	})
	require.NoError(t, err)
	msg := decodeRaw(t, raw)

	re := regexp.MustCompile(`boundary="(boundary_[0-9a-f]{32})"`)
	m := re.FindStringSubmatch(msg)
	require.NotNil(t, m, "boundary should be boundary_<32 hex chars>")
	boundary := m[1]

	// Opening marker for the body part and the closing marker
	assert.Contains(t, msg, "--"+boundary+"\r\n")
	assert.True(t, strings.HasSuffix(msg, "--"+boundary+"--"))
}

func TestBuildRawMessage_ReplyLinkage(t *testing.T) {
	svc := NewComposeService(nil)

	raw, err := svc.BuildRawMessage(&Composition{
		To:         []string{"jane@example.com"},
		Subject:    "Re: Hi",
		BodyHTML:   "<p>reply</p>",
		InReplyTo:  "<m2@example.com>",
		References: "<m1@example.com> <m2@example.com>",
	})
	require.NoError(t, err)
	msg := decodeRaw(t, raw)

	assert.Contains(t, msg, "In-Reply-To: <m2@example.com>\r\n")
	assert.Contains(t, msg, "References: <m1@example.com> <m2@example.com>\r\n")
}

func TestBuildRawMessage_Attachments(t *testing.T) {
	svc := NewComposeService(nil)

	pdf := []byte("%PDF-1.4 fake")
	img := []byte{0x89, 0x50, 0x4e, 0x47}

	raw, err := svc.BuildRawMessage(&Composition{
		To:       []string{"x@example.com"},
		Subject:  "with files",
		BodyHTML: "<p>see attached</p>",
		Attachments: []OutboundAttachment{
			{Filename: "doc.pdf", MimeType: "application/pdf", Data: pdf},
			{Filename: "pic.png", Data: img},
		},
	})
	require.NoError(t, err)
	msg := decodeRaw(t, raw)

	assert.Contains(t, msg, `Content-Type: application/pdf; name="doc.pdf"`)
	assert.Contains(t, msg, `Content-Disposition: attachment; filename="doc.pdf"`)
	assert.Contains(t, msg, "Content-Transfer-Encoding: base64")
	assert.Contains(t, msg, base64.StdEncoding.EncodeToString(pdf))

	// Missing mime type falls back to octet-stream
	assert.Contains(t, msg, `Content-Type: application/octet-stream; name="pic.png"`)

	// Input order is preserved
	assert.Less(t, strings.Index(msg, "doc.pdf"), strings.Index(msg, "pic.png"))
}

func TestBuildRawMessage_InvalidInput(t *testing.T) {
	svc := NewComposeService(nil)

	_, err := svc.BuildRawMessage(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.BuildRawMessage(&Composition{Subject: "no recipients"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReplyComposition(t *testing.T) {
	base := &Conversation{
		ID:       "t1",
		ThreadID: "t1",
		Subject:  "Budget review",
		Messages: []*Message{
			{
				ID:              "m1",
				Sender:          Sender{Name: "Jane", Email: "jane@example.com"},
				MessageIDHeader: "<m1@example.com>",
				Date:            time.Now(),
			},
		},
	}

	t.Run("first_reply_references_the_message_itself", func(t *testing.T) {
		comp := ReplyComposition(base, "<p>sounds good</p>")
		require.NotNil(t, comp)
		assert.Equal(t, []string{"jane@example.com"}, comp.To)
		assert.Equal(t, "Re: Budget review", comp.Subject)
		assert.Equal(t, "t1", comp.ThreadID)
		assert.Equal(t, "<m1@example.com>", comp.InReplyTo)
		assert.Equal(t, "<m1@example.com>", comp.References)
	})

	t.Run("chain_appends_to_prior_references", func(t *testing.T) {
		conv := &Conversation{
			ThreadID: "t1",
			Subject:  "Re: Budget review",
			Messages: []*Message{
				{
					Sender:          Sender{Email: "bob@example.com"},
					MessageIDHeader: "<m2@example.com>",
					References:      "<m1@example.com>",
				},
			},
		}
		comp := ReplyComposition(conv, "<p>ok</p>")
		require.NotNil(t, comp)
		assert.Equal(t, "<m1@example.com> <m2@example.com>", comp.References)
		// Subject already carries the reply prefix
		assert.Equal(t, "Re: Budget review", comp.Subject)
	})

	t.Run("empty_conversation", func(t *testing.T) {
		assert.Nil(t, ReplyComposition(&Conversation{}, "<p>x</p>"))
	})
}
