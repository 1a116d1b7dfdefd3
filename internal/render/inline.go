package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// AttachmentFetcher loads the raw bytes of an attachment by its
// provider-managed reference ID.
type AttachmentFetcher func(attachmentID string) ([]byte, error)

// ResolveInlineImages rewrites img elements whose src is a cid: URI into
// data URIs using the message's inline attachments. Each image resolves
// independently; a failed fetch leaves that img untouched and never fails
// the message. Content without cid: references is returned as-is.
func ResolveInlineImages(content string, attachments []Attachment, fetch AttachmentFetcher) string {
	if !strings.Contains(content, "cid:") || fetch == nil {
		return content
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	byContentID := make(map[string]Attachment, len(attachments))
	for _, att := range attachments {
		if att.ContentID != "" {
			byContentID[att.ContentID] = att
		}
	}

	changed := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for i, attr := range n.Attr {
				if attr.Key != "src" || !strings.HasPrefix(attr.Val, "cid:") {
					continue
				}
				cid := strings.TrimPrefix(attr.Val, "cid:")
				att, ok := byContentID[cid]
				if !ok {
					continue
				}
				data, err := fetch(att.ID)
				if err != nil {
					continue
				}
				n.Attr[i].Val = fmt.Sprintf("data:%s;base64,%s", att.MimeType, base64.StdEncoding.EncodeToString(data))
				changed = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !changed {
		return content
	}

	body := findNode(doc, "body")
	if body == nil {
		return content
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return content
		}
	}
	return buf.String()
}
