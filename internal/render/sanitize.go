package render

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// emailPolicy is the sanitization policy applied to every message body
// before any DOM work. Scripts, frames, embeds and forms are dropped
// entirely, as are inline event handlers; style/class/id survive because
// the de-quoter keys off them.
var emailPolicy *bluemonday.Policy

func init() {
	p := bluemonday.UGCPolicy()

	p.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("strong", "em", "u", "s", "code", "pre")
	p.AllowElements("ul", "ol", "li")
	p.AllowElements("blockquote", "hr")
	p.AllowElements("a", "img")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("class", "id").Globally()
	p.AllowAttrs("style").OnElements("span", "div", "p", "td", "th")

	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto", "cid", "data")

	emailPolicy = p
}

// SanitizeHTML strips dangerous markup from untrusted message HTML.
// This always runs before any other processing; raw provider HTML is
// never handed to a renderer, even transiently.
func SanitizeHTML(raw string) string {
	return emailPolicy.Sanitize(raw)
}

// CleanContent sanitizes raw message HTML and strips quoted-reply
// boilerplate from it. It returns both the cleaned variant and the
// sanitized-only original so the display layer can toggle between them.
// Cleaning is best-effort: if de-quoting fails or empties the body, the
// sanitized original stands in.
func CleanContent(raw string) (cleaned, original string) {
	original = SanitizeHTML(raw)
	cleaned = strings.TrimSpace(stripQuotes(original))
	if cleaned == "" {
		cleaned = original
	}
	return cleaned, original
}

// quoteClasses are provider-specific wrapper classes around quoted reply
// chains.
var quoteClasses = []string{"gmail_quote", "gmail_attr", "protonmail_quote", "moz-cite-prefix"}

// stripQuotes removes quote containers, blockquotes, reply dividers and
// textual reply headers from sanitized HTML. On any parse failure the
// input is returned unchanged, never less than sanitized.
func stripQuotes(sanitized string) string {
	doc, err := html.Parse(strings.NewReader(sanitized))
	if err != nil {
		return sanitized
	}

	body := findNode(doc, "body")
	if body == nil {
		return sanitized
	}

	removeQuoteNodes(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return sanitized
		}
	}
	return buf.String()
}

func findNode(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, name); found != nil {
			return found
		}
	}
	return nil
}

func removeQuoteNodes(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && isQuoteNode(c) {
			n.RemoveChild(c)
			continue
		}
		removeQuoteNodes(c)
	}
}

func isQuoteNode(n *html.Node) bool {
	switch n.Data {
	case "blockquote", "hr":
		return true
	}

	for _, attr := range n.Attr {
		switch attr.Key {
		case "class":
			for _, qc := range quoteClasses {
				if strings.Contains(attr.Val, qc) {
					return true
				}
			}
		case "style":
			if n.Data == "div" && isQuoteBorder(attr.Val) {
				return true
			}
		}
	}

	// HTML-formatted reply headers ("On ... wrote:" inside a div/p/span)
	if isLeafBlock(n) && IsReplyHeader(strings.TrimSpace(textContent(n))) {
		return true
	}

	return false
}

// isQuoteBorder detects the left-border styling Gmail and Outlook use as
// a visual reply-quote marker, including the logical-direction variant.
func isQuoteBorder(style string) bool {
	s := strings.ToLower(style)
	if !strings.Contains(s, "solid") {
		return false
	}
	return strings.Contains(s, "border-left") || strings.Contains(s, "border-inline-start")
}

// isLeafBlock limits the textual reply-header check to small containers
// so a match deep in the body cannot take out an enclosing wrapper.
func isLeafBlock(n *html.Node) bool {
	switch n.Data {
	case "div", "p", "span":
	default:
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "a", "b", "i", "u", "em", "strong", "span", "br":
		default:
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
