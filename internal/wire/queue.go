package wire

// QueuePriority is the scheduling priority of a queued message.
type QueuePriority string

const (
	PriorityHigh   QueuePriority = "high"
	PriorityNormal QueuePriority = "normal"
	PriorityLow    QueuePriority = "low"
)

// QueueMessageStatus is the backend-owned state of a queued message.
type QueueMessageStatus string

const (
	QueuePending    QueueMessageStatus = "pending"
	QueueProcessing QueueMessageStatus = "processing"
	QueueCompleted  QueueMessageStatus = "completed"
	QueueFailed     QueueMessageStatus = "failed"
)

// QueueMessage is a read-only projection of a backend-scheduled message.
type QueueMessage struct {
	ID           string             `json:"id"`
	SessionID    string             `json:"sessionId"`
	To           string             `json:"to"`
	Message      string             `json:"message"`
	Priority     QueuePriority      `json:"priority"`
	Status       QueueMessageStatus `json:"status"`
	Attempts     int                `json:"attempts"`
	CreatedAt    string             `json:"createdAt"`
	ScheduledFor string             `json:"scheduledFor,omitempty"`
	ProcessedAt  string             `json:"processedAt,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// QueueStatus summarizes the backend queue.
type QueueStatus struct {
	IsActive            bool    `json:"isActive"`
	IsPaused            bool    `json:"isPaused"`
	TotalMessages       int     `json:"totalMessages"`
	PendingMessages     int     `json:"pendingMessages"`
	ProcessingMessages  int     `json:"processingMessages"`
	CompletedMessages   int     `json:"completedMessages"`
	FailedMessages      int     `json:"failedMessages"`
	AvgProcessingTime   float64 `json:"avgProcessingTime"`
	EstimatedCompletion string  `json:"estimatedCompletion,omitempty"`
}

// QueuePage is one page of GET /queue/messages.
type QueuePage struct {
	Messages   []QueueMessage `json:"messages"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}
