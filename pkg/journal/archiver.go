package journal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the slice of the S3 client the archiver needs.
// *s3.Client satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DefaultQueueDepth is the archiver's buffered queue size.
const DefaultQueueDepth = 256

type archiveItem struct {
	seq   uint64
	frame []byte
	at    time.Time
}

// Archiver drains committed frames to object storage on its own
// goroutine. Archiving is best effort: when the queue is full or a put
// fails the frame is dropped and counted, the session never blocks on
// storage.
type Archiver struct {
	store   ObjectStore
	bucket  string
	prefix  string
	logger  *slog.Logger
	queue   chan archiveItem
	dropped atomic.Uint64
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithLogger sets the archiver's logger.
func WithLogger(l *slog.Logger) ArchiverOption {
	return func(a *Archiver) { a.logger = l }
}

// WithQueueDepth sets the buffered queue size.
func WithQueueDepth(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.queue = make(chan archiveItem, n)
		}
	}
}

// NewArchiver creates an archiver writing frames to bucket under prefix.
// Call Run on its own goroutine to start draining.
func NewArchiver(store ObjectStore, bucket, prefix string, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		store:  store,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default(),
		queue:  make(chan archiveItem, DefaultQueueDepth),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Offer enqueues a frame for archiving without blocking. It reports
// whether the frame was accepted; rejected frames count as dropped.
func (a *Archiver) Offer(seq uint64, frame []byte) bool {
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)

	select {
	case a.queue <- archiveItem{seq: seq, frame: frameCopy, at: time.Now()}:
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// Dropped returns how many frames were rejected or failed to upload.
func (a *Archiver) Dropped() uint64 {
	return a.dropped.Load()
}

// Run drains the queue until ctx is canceled, uploading one object per
// frame. It returns ctx.Err.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-a.queue:
			if err := a.put(ctx, item); err != nil {
				a.dropped.Add(1)
				a.logger.Warn("journal: archive put failed",
					"seq", item.seq,
					"bucket", a.bucket,
					"error", err)
			}
		}
	}
}

func (a *Archiver) put(ctx context.Context, item archiveItem) error {
	// Zero-padded keys keep lexicographic listing in commit order.
	key := fmt.Sprintf("%s%020d", a.prefix, item.seq)

	_, err := a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(item.frame),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"commit-seq":   fmt.Sprintf("%d", item.seq),
			"committed-at": item.at.UTC().Format(time.RFC3339Nano),
		},
	})
	return err
}
