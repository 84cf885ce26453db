// Package analytics is the request-logging collaborator: a buffered,
// batched, best-effort sink for completed requests. It sits entirely
// off the hot path — Log() never blocks a request and drops entries
// rather than apply backpressure to the gateway.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RequestLogEntry is one completed request's outcome, independent of
// whether it was streamed.
type RequestLogEntry struct {
	ID           string
	ProviderID   string
	Model        string
	Status       int
	LatencyMs    int64
	TTFTMs       int64
	InputTokens  int
	OutputTokens int
	ErrorKind    string
	CreatedAt    time.Time
}

// DailyStat is one day's aggregated request counters.
type DailyStat struct {
	Day          string
	RequestCount int
	ErrorCount   int
	InputTokens  int
	OutputTokens int
}

// Store is the persistence side the Ingestor writes to and the
// analytics Service reads from.
type Store interface {
	LogRequest(ctx context.Context, entry RequestLogEntry) error
	DailyStats(ctx context.Context, days int) ([]DailyStat, error)
}

// Ingestor batches RequestLogEntry values and flushes them to Store
// either every flushTime or once batchSize entries have
// accumulated, whichever comes first.
type Ingestor struct {
	logger    *zap.Logger
	store     Store
	logChan   chan RequestLogEntry
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, store Store) *Ingestor {
	return &Ingestor{
		logger:    logger,
		store:     store,
		logChan:   make(chan RequestLogEntry, 10000),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

// Log enqueues an entry without blocking the caller. If the internal
// buffer is full, the entry is dropped and a warning is logged —
// analytics must never add latency or backpressure to a live request.
func (i *Ingestor) Log(entry RequestLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case i.logChan <- entry:
	default:
		i.logger.Warn("analytics buffer full, dropping log", zap.String("request_id", entry.ID))
	}
}

func (i *Ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

func (i *Ingestor) Stop() {
	close(i.logChan)
}

func (i *Ingestor) worker(ctx context.Context) {
	batch := make([]RequestLogEntry, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, entry := range batch {
			if err := i.store.LogRequest(context.Background(), entry); err != nil {
				i.logger.Error("failed to persist request log", zap.String("id", entry.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-i.logChan:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
