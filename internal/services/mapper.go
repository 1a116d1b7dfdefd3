package services

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/titouancv/courriels/internal/render"
	gmailapi "google.golang.org/api/gmail/v1"
)

// systemLabels are suppressed from the exposed label set; only
// user-meaningful labels survive mapping.
var systemLabels = map[string]bool{
	"INBOX":     true,
	"UNREAD":    true,
	"IMPORTANT": true,
}

var senderPattern = regexp.MustCompile(`(.+?)\s*<(.+?)>`)

// buildConversation aggregates one raw provider thread into a
// Conversation. Messages arrive in provider order, which is
// chronologically non-decreasing; that order is preserved.
func buildConversation(ctx context.Context, thread *gmailapi.Thread, fullDetails bool, bodies BodyCache) *Conversation {
	if thread == nil || len(thread.Messages) == 0 {
		return nil
	}

	messages := make([]*Message, 0, len(thread.Messages))
	for _, raw := range thread.Messages {
		messages = append(messages, buildMessage(ctx, raw, bodies))
	}

	first := thread.Messages[0]
	last := thread.Messages[len(thread.Messages)-1]

	subject := headerValue(first, "Subject")
	if subject == "" {
		subject = "(No Subject)"
	}

	// Unread if any message in the thread is unread, not just the last
	unread := false
	for _, raw := range thread.Messages {
		if hasLabel(raw, "UNREAD") {
			unread = true
			break
		}
	}

	return &Conversation{
		ID:          thread.Id,
		ThreadID:    thread.Id,
		Sender:      messages[len(messages)-1].Sender,
		Subject:     subject,
		Preview:     last.Snippet,
		Messages:    messages,
		Date:        messages[len(messages)-1].Date,
		Read:        !unread,
		Labels:      filterLabels(last.LabelIds),
		Folder:      classifyFolder(last.LabelIds),
		FullDetails: fullDetails,
	}
}

func buildMessage(ctx context.Context, raw *gmailapi.Message, bodies BodyCache) *Message {
	cleaned, original := renderBody(ctx, raw, bodies)

	return &Message{
		ID:              raw.Id,
		Sender:          parseSender(headerValue(raw, "From")),
		Cleaned:         cleaned,
		Original:        original,
		Date:            messageDate(raw),
		Attachments:     render.CollectAttachments(raw.Payload),
		MessageIDHeader: headerValue(raw, "Message-ID"),
		References:      headerValue(raw, "References"),
	}
}

// renderBody extracts and sanitizes the message body, consulting the
// body cache first. Cache failures degrade to recomputing.
func renderBody(ctx context.Context, raw *gmailapi.Message, bodies BodyCache) (string, string) {
	if bodies != nil {
		if cleaned, original, ok, err := bodies.Load(ctx, raw.Id); err == nil && ok {
			return cleaned, original
		}
	}
	body := render.ExtractBody(raw.Payload)
	fromPayload := body != ""
	if body == "" {
		body = raw.Snippet
	}
	cleaned, original := render.CleanContent(body)
	// Snippet fallbacks are partial views; only full payload bodies are
	// worth caching.
	if bodies != nil && fromPayload {
		_ = bodies.Save(ctx, raw.Id, cleaned, original)
	}
	return cleaned, original
}

// parseSender splits a `"Display Name" <addr@host>` From header. A bare
// address derives its display name from the local part.
func parseSender(from string) Sender {
	if m := senderPattern.FindStringSubmatch(from); m != nil {
		return Sender{
			Name:  strings.TrimSpace(strings.ReplaceAll(m[1], `"`, "")),
			Email: m[2],
		}
	}
	name := from
	if at := strings.Index(from, "@"); at >= 0 {
		name = from[:at]
	}
	return Sender{Name: name, Email: from}
}

// classifyFolder maps the last message's label set to a folder.
// First match wins: trash beats sent beats drafts.
func classifyFolder(labelIDs []string) Folder {
	has := func(label string) bool {
		for _, l := range labelIDs {
			if l == label {
				return true
			}
		}
		return false
	}
	switch {
	case has("TRASH"):
		return FolderTrash
	case has("SENT") && !has("INBOX"):
		return FolderSent
	case has("DRAFT"):
		return FolderDrafts
	default:
		return FolderInbox
	}
}

func filterLabels(labelIDs []string) []string {
	out := make([]string, 0, len(labelIDs))
	for _, l := range labelIDs {
		if systemLabels[l] || strings.HasPrefix(l, "CATEGORY_") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func headerValue(msg *gmailapi.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func hasLabel(msg *gmailapi.Message, label string) bool {
	for _, l := range msg.LabelIds {
		if l == label {
			return true
		}
	}
	return false
}

// messageDate parses the Date header and falls back to the provider's
// internal timestamp: client-supplied Date headers are not reliable.
func messageDate(msg *gmailapi.Message) time.Time {
	if dateStr := headerValue(msg, "Date"); dateStr != "" {
		if t, err := mail.ParseDate(dateStr); err == nil {
			return t
		}
	}
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate)
	}
	return time.Time{}
}
