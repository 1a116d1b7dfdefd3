package services

import (
	"context"
	"log"
	"sync"
)

// folderState is the cached view of one folder.
type folderState struct {
	conversations []*Conversation
	nextPageToken string
	search        string
}

// InboxStore keeps the in-memory conversation lists per folder and
// serializes refreshes against stale completions. Every Refresh bumps a
// generation counter; a fetch that finishes after a newer refresh
// started is discarded instead of overwriting fresher data.
type InboxStore struct {
	mu         sync.Mutex
	threads    ThreadService
	pageSize   int64
	folders    map[Folder]*folderState
	generation map[Folder]uint64
	logger     *log.Logger
}

func NewInboxStore(threads ThreadService, pageSize int64) *InboxStore {
	return &InboxStore{
		threads:    threads,
		pageSize:   pageSize,
		folders:    make(map[Folder]*folderState),
		generation: make(map[Folder]uint64),
	}
}

// SetLogger sets the logger for this service
func (s *InboxStore) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Refresh replaces the folder's conversation list. Concurrent refreshes
// of the same folder race; only the most recently started one lands.
func (s *InboxStore) Refresh(ctx context.Context, folder Folder, search string) error {
	s.mu.Lock()
	s.generation[folder]++
	gen := s.generation[folder]
	s.mu.Unlock()

	page, err := s.threads.ListConversations(ctx, folder, ListOptions{
		Search:     search,
		MaxResults: s.pageSize,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation[folder] != gen {
		if s.logger != nil {
			s.logger.Printf("inbox: stale refresh for %s discarded", folder)
		}
		return nil
	}
	s.folders[folder] = &folderState{
		conversations: page.Conversations,
		nextPageToken: page.NextPageToken,
		search:        search,
	}
	return nil
}

// LoadMore appends the next page to the folder's list. No-op when the
// folder has never been refreshed or has no further pages.
func (s *InboxStore) LoadMore(ctx context.Context, folder Folder) error {
	s.mu.Lock()
	state, ok := s.folders[folder]
	if !ok || state.nextPageToken == "" {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation[folder]
	token := state.nextPageToken
	search := state.search
	s.mu.Unlock()

	page, err := s.threads.ListConversations(ctx, folder, ListOptions{
		Search:     search,
		PageToken:  token,
		MaxResults: s.pageSize,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation[folder] != gen {
		return nil
	}
	state = s.folders[folder]
	state.conversations = append(state.conversations, page.Conversations...)
	state.nextPageToken = page.NextPageToken
	return nil
}

// Conversations returns a snapshot of the folder's cached list.
func (s *InboxStore) Conversations(folder Folder) []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.folders[folder]
	if !ok {
		return nil
	}
	out := make([]*Conversation, len(state.conversations))
	copy(out, state.conversations)
	return out
}

// LoadFull upgrades a cached metadata-only conversation to full detail
// and returns it. Conversations already loaded in full are returned
// from cache.
func (s *InboxStore) LoadFull(ctx context.Context, folder Folder, threadID string) (*Conversation, error) {
	s.mu.Lock()
	if state, ok := s.folders[folder]; ok {
		for _, conv := range state.conversations {
			if conv.ThreadID == threadID && conv.FullDetails {
				s.mu.Unlock()
				return conv, nil
			}
		}
	}
	s.mu.Unlock()

	full, err := s.threads.GetConversation(ctx, threadID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.folders[folder]; ok {
		for i, conv := range state.conversations {
			if conv.ThreadID == threadID {
				state.conversations[i] = full
				break
			}
		}
	}
	return full, nil
}

// MarkAsRead flips the conversation to read locally before the remote
// call, and restores the previous state when the call fails.
func (s *InboxStore) MarkAsRead(ctx context.Context, folder Folder, threadID string) error {
	s.mu.Lock()
	var prev bool
	var target *Conversation
	if state, ok := s.folders[folder]; ok {
		for _, conv := range state.conversations {
			if conv.ThreadID == threadID {
				target = conv
				prev = conv.Read
				conv.Read = true
				break
			}
		}
	}
	s.mu.Unlock()

	if err := s.threads.MarkConversationRead(ctx, threadID); err != nil {
		s.mu.Lock()
		if target != nil {
			target.Read = prev
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Delete removes the conversation locally before the remote call, and
// reinserts it at its previous position when the call fails.
func (s *InboxStore) Delete(ctx context.Context, folder Folder, threadID string) error {
	s.mu.Lock()
	var removed *Conversation
	removedAt := -1
	if state, ok := s.folders[folder]; ok {
		for i, conv := range state.conversations {
			if conv.ThreadID == threadID {
				removed = conv
				removedAt = i
				state.conversations = append(state.conversations[:i], state.conversations[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if err := s.threads.TrashConversation(ctx, threadID); err != nil {
		s.mu.Lock()
		if removed != nil {
			state := s.folders[folder]
			if removedAt > len(state.conversations) {
				removedAt = len(state.conversations)
			}
			state.conversations = append(state.conversations[:removedAt],
				append([]*Conversation{removed}, state.conversations[removedAt:]...)...)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}
