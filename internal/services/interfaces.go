package services

import (
	"context"
	"time"

	"github.com/titouancv/courriels/internal/render"
)

// Folder is the logical folder a conversation is displayed under.
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderSent   Folder = "sent"
	FolderDrafts Folder = "drafts"
	FolderTrash  Folder = "trash"
)

// Sender is a parsed From-header identity.
type Sender struct {
	Name  string
	Email string
}

// Attachment is re-exported so callers outside the mapping pipeline do
// not need to import the render package.
type Attachment = render.Attachment

// Message is one normalized message within a conversation. Cleaned is
// Original with the quote chain stripped; both are sanitized HTML.
type Message struct {
	ID              string
	Sender          Sender
	Cleaned         string
	Original        string
	Date            time.Time
	Attachments     []Attachment
	MessageIDHeader string
	References      string
}

// InlineAttachments returns the attachments referenced from the body
// HTML via cid: URIs.
func (m *Message) InlineAttachments() []Attachment {
	var out []Attachment
	for _, att := range m.Attachments {
		if att.Inline() {
			out = append(out, att)
		}
	}
	return out
}

// RegularAttachments returns the downloadable attachments, excluding
// inline image references.
func (m *Message) RegularAttachments() []Attachment {
	var out []Attachment
	for _, att := range m.Attachments {
		if !att.Inline() {
			out = append(out, att)
		}
	}
	return out
}

// Conversation is the display model for one provider thread.
type Conversation struct {
	ID          string
	ThreadID    string
	Sender      Sender // sender of the most recent message
	Subject     string // subject of the first message, stable across replies
	Preview     string
	Messages    []*Message
	Date        time.Time
	Read        bool
	Labels      []string // system labels filtered out
	Folder      Folder
	FullDetails bool
}

// LastMessage returns the most recent message, or nil for an empty
// conversation.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// ListOptions controls conversation listing.
type ListOptions struct {
	Search     string // free-text search; overrides the folder query
	PageToken  string
	MaxResults int64
}

// ConversationPage is one page of mapped conversations.
type ConversationPage struct {
	Conversations []*Conversation
	NextPageToken string
}

// BodyCache persists rendered message bodies across sessions. ok is
// false on a miss.
type BodyCache interface {
	Load(ctx context.Context, messageID string) (cleaned, original string, ok bool, err error)
	Save(ctx context.Context, messageID, cleaned, original string) error
}

// ThreadService lists, fetches and mutates conversations.
type ThreadService interface {
	ListConversations(ctx context.Context, folder Folder, opts ListOptions) (*ConversationPage, error)
	GetConversation(ctx context.Context, threadID string) (*Conversation, error)
	MarkConversationRead(ctx context.Context, threadID string) error
	TrashConversation(ctx context.Context, threadID string) error
	UnreadCount(ctx context.Context, folder Folder) (int64, error)
}

// OutboundAttachment is a file to attach to an outgoing message.
type OutboundAttachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Composition is an outgoing message plus optional reply linkage.
type Composition struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	BodyHTML    string
	ThreadID    string
	InReplyTo   string
	References  string
	Attachments []OutboundAttachment
}

// ComposeService builds and sends outgoing messages.
type ComposeService interface {
	BuildRawMessage(comp *Composition) (string, error)
	Send(ctx context.Context, comp *Composition) (string, error)
}

// QueryService maps logical folders to provider search queries.
type QueryService interface {
	QueryForFolder(folder Folder, search string) string
	UnreadQuery(folder Folder) string
}

// Profile is a display profile for an account.
type Profile struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	UpdatedAt time.Time
}

// AccountService resolves the account's display profile, consulting the
// local store before the provider's identity endpoint.
type AccountService interface {
	GetProfile(ctx context.Context) (*Profile, error)
	SaveProfile(ctx context.Context, profile *Profile) error
}
