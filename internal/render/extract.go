package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	gmailwrap "github.com/titouancv/courriels/internal/gmail"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Attachment describes a message part carrying a file. ContentID is set
// only for parts referenced from body HTML via cid: URIs; regular
// downloadable attachments leave it empty.
type Attachment struct {
	ID        string
	Filename  string
	MimeType  string
	Size      int64
	ContentID string
}

// Inline reports whether the attachment is an inline reference (embedded
// image) rather than a downloadable file.
func (a Attachment) Inline() bool { return a.ContentID != "" }

// replyHeaderPatterns detect the textual start of a quoted reply chain.
// The list is best-effort and locale-limited (English and French variants
// observed in the wild); callers may extend it via SetReplyHeaderPatterns.
var replyHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)On\s.+wrote:`),
	regexp.MustCompile(`(?i)Le\s.+a écrit`),
	regexp.MustCompile(`^(From|Sent|To):\s.+`),
	regexp.MustCompile(`^De :\s.+`),
}

// SetReplyHeaderPatterns replaces the quoted-reply detection patterns.
// Not safe to call concurrently with extraction.
func SetReplyHeaderPatterns(patterns []*regexp.Regexp) {
	if len(patterns) > 0 {
		replyHeaderPatterns = patterns
	}
}

// IsReplyHeader reports whether a line of text marks the start of a
// quoted reply chain.
func IsReplyHeader(line string) bool {
	for _, re := range replyHeaderPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

var urlPattern = regexp.MustCompile(`(https?://[^\s<]+|www\.[^\s<]+)`)

// ExtractBody walks a message payload tree and returns the best available
// body as HTML. Resolution order:
//  1. the node itself is text/html with inline data
//  2. any child yields HTML (scanning in order, first match wins)
//  3. any child yields text/plain, promoted to HTML
//  4. any child yields anything non-empty
//  5. the node itself is text/plain with inline data, promoted to HTML
func ExtractBody(payload *gmailapi.MessagePart) string {
	if payload == nil {
		return ""
	}

	if strings.EqualFold(payload.MimeType, "text/html") && hasInlineData(payload) {
		return gmailwrap.DecodeBody(payload.Body.Data)
	}

	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			if body := ExtractBody(part); body != "" && strings.EqualFold(part.MimeType, "text/html") {
				return body
			}
		}
		for _, part := range payload.Parts {
			if body := ExtractBody(part); body != "" && strings.EqualFold(part.MimeType, "text/plain") {
				return body
			}
		}
		for _, part := range payload.Parts {
			if body := ExtractBody(part); body != "" {
				return body
			}
		}
	}

	if strings.EqualFold(payload.MimeType, "text/plain") && hasInlineData(payload) {
		return PlainTextToHTML(gmailwrap.DecodeBody(payload.Body.Data))
	}

	return ""
}

func hasInlineData(p *gmailapi.MessagePart) bool {
	return p.Body != nil && p.Body.Data != ""
}

// PlainTextToHTML promotes a text/plain body to HTML: the text is
// truncated at the first quoted-reply header line, escaped, bare URLs are
// turned into anchors opening in a new context, and newlines become
// line breaks.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if IsReplyHeader(strings.TrimSpace(line)) {
			break
		}
		kept = append(kept, line)
	}

	escaped := html.EscapeString(strings.Join(kept, "\n"))

	linked := urlPattern.ReplaceAllStringFunc(escaped, func(url string) string {
		href := url
		if !strings.HasPrefix(url, "http") {
			href = "https://" + url
		}
		return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, href, url)
	})

	return strings.ReplaceAll(linked, "\n", "<br />")
}

// CollectAttachments recursively walks a message payload tree and returns
// every part carrying both a filename and an attachment reference. The
// walk visits all children regardless of whether a node itself
// contributed: attachments and inline HTML can co-exist at different
// depths of the same tree.
func CollectAttachments(payload *gmailapi.MessagePart) []Attachment {
	if payload == nil {
		return nil
	}

	var out []Attachment
	var walk func(p *gmailapi.MessagePart)
	walk = func(p *gmailapi.MessagePart) {
		if p == nil {
			return
		}
		if p.Filename != "" && p.Body != nil && p.Body.AttachmentId != "" {
			out = append(out, Attachment{
				ID:        p.Body.AttachmentId,
				Filename:  p.Filename,
				MimeType:  p.MimeType,
				Size:      p.Body.Size,
				ContentID: partContentID(p.Headers),
			})
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(payload)
	return out
}

// partContentID recovers a Content-ID from part headers so inline images
// can be correlated with cid: references in the body HTML.
func partContentID(headers []*gmailapi.MessagePartHeader) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-ID") || strings.EqualFold(h.Name, "X-Attachment-Id") {
			return strings.Trim(h.Value, "<>")
		}
	}
	return ""
}
