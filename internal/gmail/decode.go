package gmail

import (
	"encoding/base64"
	"strings"
)

// DecodeBody decodes a base64url-encoded message part body into UTF-8 text.
// Gmail pads some payloads and not others, so padding is stripped before
// decoding. Malformed input degrades to an empty string: a single broken
// part must not prevent the rest of the thread from rendering.
func DecodeBody(data string) string {
	if data == "" {
		return ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	// Invalid byte sequences are substituted rather than failing the message
	return strings.ToValidUTF8(string(raw), "�")
}

// DecodeAttachment decodes a base64url attachment payload into raw bytes.
func DecodeAttachment(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

// EncodeRaw encodes a fully assembled RFC 2822 message for transport:
// standard base64 with the URL-safe alphabet and no trailing padding.
func EncodeRaw(message string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(message))
}
