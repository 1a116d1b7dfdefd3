package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBody(t *testing.T) {
	t.Run("unpadded_base64url", func(t *testing.T) {
		data := base64.RawURLEncoding.EncodeToString([]byte("Hello, World!"))
		assert.Equal(t, "Hello, World!", DecodeBody(data))
	})

	t.Run("padded_base64url", func(t *testing.T) {
		// 13 bytes, not a multiple of 3, so the encoding carries padding
		data := base64.URLEncoding.EncodeToString([]byte("padded input!"))
		assert.Contains(t, data, "=")
		assert.Equal(t, "padded input!", DecodeBody(data))
	})

	t.Run("url_safe_alphabet", func(t *testing.T) {
		// 0xfb 0xef produces '-' and '_' in the URL-safe alphabet
		raw := []byte{0xfb, 0xef, 0xbe}
		data := base64.RawURLEncoding.EncodeToString(raw)
		decoded := DecodeBody(data)
		assert.NotEmpty(t, decoded)
	})

	t.Run("empty_input", func(t *testing.T) {
		assert.Equal(t, "", DecodeBody(""))
	})

	t.Run("malformed_input_degrades_to_empty", func(t *testing.T) {
		assert.Equal(t, "", DecodeBody("!!not base64!!"))
	})

	t.Run("invalid_utf8_is_substituted", func(t *testing.T) {
		data := base64.RawURLEncoding.EncodeToString([]byte{0x48, 0x69, 0xff, 0xfe})
		decoded := DecodeBody(data)
		assert.Contains(t, decoded, "Hi")
		assert.Contains(t, decoded, "�")
	})
}

func TestDecodeAttachment(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02, 0xff}
	data := base64.RawURLEncoding.EncodeToString(payload)

	decoded, err := DecodeAttachment(data)
	assert.NoError(t, err)
	assert.Equal(t, payload, decoded)

	_, err = DecodeAttachment("not valid!")
	assert.Error(t, err)
}

func TestEncodeRaw(t *testing.T) {
	message := "To: someone@example.com\r\nSubject: Test\r\n\r\nBody"
	encoded := EncodeRaw(message)

	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	assert.NoError(t, err)
	assert.Equal(t, message, string(decoded))
}
