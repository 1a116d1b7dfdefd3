package services

import (
	"context"
	"fmt"
	"log"

	"github.com/titouancv/courriels/internal/gmail"
)

// ThreadServiceImpl implements ThreadService on top of the Gmail client.
type ThreadServiceImpl struct {
	client  *gmail.Client
	queries QueryService
	workers int
	bodies  BodyCache
	logger  *log.Logger
}

func NewThreadService(client *gmail.Client, queries QueryService, workers int) *ThreadServiceImpl {
	return &ThreadServiceImpl{
		client:  client,
		queries: queries,
		workers: workers,
	}
}

// SetLogger sets the logger for this service
func (s *ThreadServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetBodyCache enables persistent caching of rendered message bodies
func (s *ThreadServiceImpl) SetBodyCache(bodies BodyCache) {
	s.bodies = bodies
}

func (s *ThreadServiceImpl) ListConversations(ctx context.Context, folder Folder, opts ListOptions) (*ConversationPage, error) {
	query := s.queries.QueryForFolder(folder, opts.Search)

	summaries, nextPageToken, err := s.client.ListThreadsPage(ctx, query, opts.MaxResults, opts.PageToken)
	if err != nil {
		return nil, s.classify("list threads", err)
	}

	ids := make([]string, 0, len(summaries))
	for _, t := range summaries {
		ids = append(ids, t.Id)
	}

	threads, err := s.client.GetThreadsParallel(ctx, ids, "metadata", s.workers)
	if err != nil {
		return nil, s.classify("fetch threads", err)
	}

	// Failed per-thread fetches come back as nil slots; drop them so
	// one bad thread does not sink the page.
	conversations := make([]*Conversation, 0, len(threads))
	for _, t := range threads {
		if t == nil {
			continue
		}
		if conv := buildConversation(ctx, t, false, s.bodies); conv != nil {
			conversations = append(conversations, conv)
		}
	}

	return &ConversationPage{
		Conversations: conversations,
		NextPageToken: nextPageToken,
	}, nil
}

func (s *ThreadServiceImpl) GetConversation(ctx context.Context, threadID string) (*Conversation, error) {
	if threadID == "" {
		return nil, ErrInvalidInput
	}
	thread, err := s.client.GetThread(ctx, threadID, "full")
	if err != nil {
		return nil, s.classify("get thread", err)
	}
	conv := buildConversation(ctx, thread, true, s.bodies)
	if conv == nil {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (s *ThreadServiceImpl) MarkConversationRead(ctx context.Context, threadID string) error {
	if threadID == "" {
		return ErrInvalidInput
	}
	if err := s.client.ModifyThread(ctx, threadID, nil, []string{"UNREAD"}); err != nil {
		return s.classify("mark read", err)
	}
	return nil
}

func (s *ThreadServiceImpl) TrashConversation(ctx context.Context, threadID string) error {
	if threadID == "" {
		return ErrInvalidInput
	}
	if err := s.client.TrashThread(ctx, threadID); err != nil {
		return s.classify("trash thread", err)
	}
	return nil
}

func (s *ThreadServiceImpl) UnreadCount(ctx context.Context, folder Folder) (int64, error) {
	count, err := s.client.EstimateCount(ctx, s.queries.UnreadQuery(folder))
	if err != nil {
		return 0, s.classify("unread count", err)
	}
	return count, nil
}

func (s *ThreadServiceImpl) classify(op string, err error) error {
	if s.logger != nil {
		s.logger.Printf("thread service: %s: %v", op, err)
	}
	if gmail.IsAuthError(err) {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return fmt.Errorf("%s: %w", op, err)
}
