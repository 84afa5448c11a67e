package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// DefaultPageSize is the queue listing page size the dashboard uses.
const DefaultPageSize = 20

// QueueService covers /queue.
type QueueService struct {
	c *Client
}

// QueueQuery selects one page of queued messages. Zero values select page 1,
// DefaultPageSize and all statuses.
type QueueQuery struct {
	Page   int
	Limit  int
	Status wire.QueueMessageStatus
}

func (q QueueQuery) values() url.Values {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return v
}

// Status returns queue totals.
func (s *QueueService) Status(ctx context.Context) wire.Response[wire.QueueStatus] {
	return getJSON[wire.QueueStatus](ctx, s.c, nil, "queue", "status")
}

// Pause stops the scheduler from dispatching.
func (s *QueueService) Pause(ctx context.Context) wire.Response[json.RawMessage] {
	return postJSON[json.RawMessage](ctx, s.c, nil, "queue", "pause")
}

// Resume restarts dispatching.
func (s *QueueService) Resume(ctx context.Context) wire.Response[json.RawMessage] {
	return postJSON[json.RawMessage](ctx, s.c, nil, "queue", "resume")
}

// Messages lists one page of queued messages.
func (s *QueueService) Messages(ctx context.Context, q QueueQuery) wire.Response[wire.QueuePage] {
	resp := getJSON[wire.QueuePage](ctx, s.c, q.values(), "queue", "messages")
	if resp.Success && resp.Data.Messages == nil {
		resp.Data.Messages = []wire.QueueMessage{}
	}
	return resp
}

// Retry re-queues a failed message.
func (s *QueueService) Retry(ctx context.Context, messageID string) wire.Response[json.RawMessage] {
	return postJSON[json.RawMessage](ctx, s.c, nil, "queue", "messages", messageID, "retry")
}

// Cancel removes a message from the queue.
func (s *QueueService) Cancel(ctx context.Context, messageID string) wire.Response[json.RawMessage] {
	return deleteJSON[json.RawMessage](ctx, s.c, "queue", "messages", messageID)
}
