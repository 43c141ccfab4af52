// internal/knowledge/queue.go
package knowledge

import "context"

// Item is one piece of content handed to the ingestion queue.
type Item struct {
	Title     string
	SourceURL string
	Content   string
}

// ItemStatus tracks an item through the external ingestion queue.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusFailed     ItemStatus = "failed"
)

// MaxIngestRetries bounds how many times the queue retries a failed item.
const MaxIngestRetries = 3

// Ingestor is the knowledge-ingestion queue. The implementation lives
// outside this repository; the orchestrator only consumes search hits
// from the Store and otherwise treats generated artifacts as ordinary
// attachments.
type Ingestor interface {
	Enqueue(ctx context.Context, baseID string, item Item) error
	Status(baseID string) map[int64]ItemStatus
}
