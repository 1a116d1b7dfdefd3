package gmail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

const (
	defaultThreadWorkers = 10
	maxThreadWorkers     = 10
)

// Client wraps the gmail.Service and provides convenience methods
type Client struct {
	Service *gmail.Service
}

// NewClient creates a new Gmail client
func NewClient(service *gmail.Service) *Client {
	return &Client{Service: service}
}

// IsAuthError reports whether err is a 401-equivalent transport failure.
// Callers surface these distinctly so the session layer can clear the
// token and force re-authentication instead of retrying silently.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401
	}
	return false
}

// ListThreadsPage returns one page of thread summaries matching a query
// and the nextPageToken for pagination.
func (c *Client) ListThreadsPage(ctx context.Context, query string, maxResults int64, pageToken string) ([]*gmail.Thread, string, error) {
	if c.Service == nil {
		return nil, "", fmt.Errorf("gmail service not initialized")
	}
	call := c.Service.Users.Threads.List("me").Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("could not list threads: %w", err)
	}
	return res.Threads, res.NextPageToken, nil
}

// GetThread retrieves a thread by ID. Format is "full", "metadata" or
// "minimal"; metadata is enough for list views and much cheaper.
func (c *Client) GetThread(ctx context.Context, id, format string) (*gmail.Thread, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail service not initialized")
	}
	call := c.Service.Users.Threads.Get("me", id).Context(ctx)
	if format != "" {
		call = call.Format(format)
	}
	thread, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("could not get thread %s: %w", id, err)
	}
	return thread, nil
}

// GetThreadsParallel fetches thread details for a list of IDs using a
// bounded worker pool. The result slice preserves the input order
// (index-addressed slots); a failed fetch leaves a nil slot rather than
// failing the whole batch. Each ID is fetched exactly once.
func (c *Client) GetThreadsParallel(ctx context.Context, threadIDs []string, format string, maxWorkers int) ([]*gmail.Thread, error) {
	if len(threadIDs) == 0 {
		return []*gmail.Thread{}, nil
	}
	if maxWorkers <= 0 || maxWorkers > maxThreadWorkers {
		maxWorkers = defaultThreadWorkers
	}
	if maxWorkers > len(threadIDs) {
		maxWorkers = len(threadIDs)
	}

	results := make([]*gmail.Thread, len(threadIDs))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				thread, err := c.GetThread(ctx, threadIDs[i], format)
				if err != nil {
					// Slot stays nil; the caller filters absent entries
					continue
				}
				results[i] = thread
			}
		}()
	}

feed:
	for i := range threadIDs {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// ModifyThread adds and removes label sets on a whole thread.
func (c *Client) ModifyThread(ctx context.Context, threadID string, addLabels, removeLabels []string) error {
	if c.Service == nil {
		return fmt.Errorf("gmail service not initialized")
	}
	req := &gmail.ModifyThreadRequest{
		AddLabelIds:    addLabels,
		RemoveLabelIds: removeLabels,
	}
	if _, err := c.Service.Users.Threads.Modify("me", threadID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("could not modify thread labels: %w", err)
	}
	return nil
}

// TrashThread moves a whole thread to trash.
func (c *Client) TrashThread(ctx context.Context, threadID string) error {
	if c.Service == nil {
		return fmt.Errorf("gmail service not initialized")
	}
	if _, err := c.Service.Users.Threads.Trash("me", threadID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("could not trash thread: %w", err)
	}
	return nil
}

// SendRaw submits a transport-encoded message, optionally attached to an
// existing thread, and returns the created message ID.
func (c *Client) SendRaw(ctx context.Context, raw, threadID string) (string, error) {
	if c.Service == nil {
		return "", fmt.Errorf("gmail service not initialized")
	}
	msg := &gmail.Message{Raw: raw}
	if threadID != "" {
		msg.ThreadId = threadID
	}
	sent, err := c.Service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("could not send message: %w", err)
	}
	return sent.Id, nil
}

// GetAttachment downloads an attachment body and returns its raw bytes.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail service not initialized")
	}
	att, err := c.Service.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not get attachment: %w", err)
	}
	data, err := DecodeAttachment(att.Data)
	if err != nil {
		return nil, fmt.Errorf("could not decode attachment: %w", err)
	}
	return data, nil
}

// GetProfile returns the authenticated account's Gmail profile.
func (c *Client) GetProfile(ctx context.Context) (*gmail.Profile, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("gmail service not initialized")
	}
	profile, err := c.Service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not get profile: %w", err)
	}
	return profile, nil
}

// EstimateCount returns Gmail's result size estimate for a query. Used
// for per-folder unread badges without fetching the threads themselves.
func (c *Client) EstimateCount(ctx context.Context, query string) (int64, error) {
	if c.Service == nil {
		return 0, fmt.Errorf("gmail service not initialized")
	}
	res, err := c.Service.Users.Threads.List("me").Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("could not estimate thread count: %w", err)
	}
	return res.ResultSizeEstimate, nil
}
