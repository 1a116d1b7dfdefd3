package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/titouancv/courriels/internal/gmail"
)

const crlf = "\r\n"

// ComposeServiceImpl builds RFC 2822 multipart messages and hands them
// to the Gmail client for delivery.
type ComposeServiceImpl struct {
	client *gmail.Client
	logger *log.Logger
}

func NewComposeService(client *gmail.Client) *ComposeServiceImpl {
	return &ComposeServiceImpl{client: client}
}

// SetLogger sets the logger for this service
func (s *ComposeServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// BuildRawMessage assembles the outbound message and returns it
// base64url-encoded without padding, ready for the send endpoint.
func (s *ComposeServiceImpl) BuildRawMessage(comp *Composition) (string, error) {
	if comp == nil || len(comp.To) == 0 {
		return "", fmt.Errorf("build message: %w", ErrInvalidInput)
	}

	boundary := "boundary_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var lines []string
	lines = append(lines, "To: "+strings.Join(comp.To, ", "))
	if len(comp.Cc) > 0 {
		lines = append(lines, "Cc: "+strings.Join(comp.Cc, ", "))
	}
	if len(comp.Bcc) > 0 {
		lines = append(lines, "Bcc: "+strings.Join(comp.Bcc, ", "))
	}
	if comp.InReplyTo != "" {
		lines = append(lines, "In-Reply-To: "+comp.InReplyTo)
	}
	if comp.References != "" {
		lines = append(lines, "References: "+comp.References)
	}
	lines = append(lines,
		"Subject: "+comp.Subject,
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="`+boundary+`"`,
		"",
		"--"+boundary,
		`Content-Type: text/html; charset="utf-8"`,
		"",
		comp.BodyHTML,
	)

	for _, part := range encodeAttachmentParts(comp.Attachments, boundary) {
		lines = append(lines, part...)
	}

	lines = append(lines, "--"+boundary+"--")

	return gmail.EncodeRaw(strings.Join(lines, crlf)), nil
}

// encodeAttachmentParts base64-encodes attachments concurrently. Each
// worker writes its own index slot so part order matches input order.
func encodeAttachmentParts(attachments []OutboundAttachment, boundary string) [][]string {
	parts := make([][]string, len(attachments))
	var wg sync.WaitGroup
	for i, att := range attachments {
		wg.Add(1)
		go func(i int, att OutboundAttachment) {
			defer wg.Done()
			mimeType := att.MimeType
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			parts[i] = []string{
				"--" + boundary,
				fmt.Sprintf(`Content-Type: %s; name="%s"`, mimeType, att.Filename),
				"Content-Transfer-Encoding: base64",
				fmt.Sprintf(`Content-Disposition: attachment; filename="%s"`, att.Filename),
				"",
				base64.StdEncoding.EncodeToString(att.Data),
			}
		}(i, att)
	}
	wg.Wait()
	return parts
}

// Send builds and delivers the message, threading the reply when the
// composition carries a thread ID. Returns the provider message ID.
func (s *ComposeServiceImpl) Send(ctx context.Context, comp *Composition) (string, error) {
	raw, err := s.BuildRawMessage(comp)
	if err != nil {
		return "", err
	}
	id, err := s.client.SendRaw(ctx, raw, comp.ThreadID)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("compose: send failed: %v", err)
		}
		if gmail.IsAuthError(err) {
			return "", fmt.Errorf("send: %w", ErrUnauthorized)
		}
		return "", fmt.Errorf("send: %w", ErrSendFailed)
	}
	return id, nil
}

// ReplyComposition seeds a composition replying to the conversation's
// last message. The references chain grows by appending the replied-to
// message ID to its own references.
func ReplyComposition(conv *Conversation, bodyHTML string) *Composition {
	last := conv.LastMessage()
	if last == nil {
		return nil
	}

	subject := conv.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	references := last.MessageIDHeader
	if last.References != "" && last.MessageIDHeader != "" {
		references = last.References + " " + last.MessageIDHeader
	} else if last.References != "" {
		references = last.References
	}

	return &Composition{
		To:         []string{last.Sender.Email},
		Subject:    subject,
		BodyHTML:   bodyHTML,
		ThreadID:   conv.ThreadID,
		InReplyTo:  last.MessageIDHeader,
		References: references,
	}
}
