package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dispatchly/ghostload/internal/opportunity"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Feed is a streaming load-board adapter. Postings pushed over the websocket
// are buffered; FetchBatch drains the buffer, so the scanner's pull cadence
// stays the same regardless of transport.
type Feed struct {
	url         string
	batchLimit  int
	dialTimeout time.Duration
	logger      *zap.Logger

	buffer    chan opportunity.Raw
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected atomic.Bool
}

// FeedConfig holds streaming feed configuration.
type FeedConfig struct {
	URL         string
	BatchLimit  int
	BufferSize  int
	DialTimeout time.Duration
	Logger      *zap.Logger
}

// NewFeed creates a streaming feed adapter.
func NewFeed(cfg *FeedConfig) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		url:         cfg.URL,
		batchLimit:  cfg.BatchLimit,
		dialTimeout: cfg.DialTimeout,
		logger:      cfg.Logger,
		buffer:      make(chan opportunity.Raw, cfg.BufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start connects and begins reading postings into the buffer.
func (f *Feed) Start() error {
	conn, err := f.dial()
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	f.wg.Add(1)
	go f.readLoop(conn)

	return nil
}

func (f *Feed) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: f.dialTimeout,
	}

	f.logger.Info("connecting-to-feed", zap.String("url", f.url))

	conn, _, err := dialer.DialContext(f.ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	f.connected.Store(true)
	f.logger.Info("feed-connected")

	return conn, nil
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// nextBackoff doubles the reconnect delay, clamped to maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// readLoop reads postings until the context is cancelled, reconnecting with
// backoff after read failures.
func (f *Feed) readLoop(conn *websocket.Conn) {
	defer f.wg.Done()

	backoff := initialBackoff

	for {
		select {
		case <-f.ctx.Done():
			f.connected.Store(false)
			_ = conn.Close()
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			f.connected.Store(false)
			_ = conn.Close()

			select {
			case <-f.ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff = nextBackoff(backoff)

			next, dialErr := f.dial()
			if dialErr != nil {
				f.logger.Warn("feed-reconnect-failed", zap.Error(dialErr))
				continue
			}
			conn = next
			backoff = initialBackoff
			continue
		}

		var p posting
		err = json.Unmarshal(message, &p)
		if err != nil {
			f.logger.Warn("feed-message-unmarshal-failed", zap.Error(err))
			continue
		}

		select {
		case f.buffer <- p.toRaw():
			PostingsFetchedTotal.Inc()
		default:
			f.logger.Warn("feed-buffer-full", zap.String("posting-id", p.PostingID))
		}
	}
}

// FetchBatch drains up to the batch limit of buffered postings. It never
// blocks: an empty buffer yields an empty batch. A dead connection surfaces
// as ErrSourceUnavailable so the cycle is logged as degraded.
func (f *Feed) FetchBatch(ctx context.Context) ([]opportunity.Raw, error) {
	if !f.connected.Load() {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: feed disconnected", ErrSourceUnavailable)
	}

	var raws []opportunity.Raw
	for len(raws) < f.batchLimit {
		select {
		case raw := <-f.buffer:
			raws = append(raws, raw)
		default:
			return raws, nil
		}
	}
	return raws, nil
}

// Close stops the read loop and releases the connection.
func (f *Feed) Close() error {
	f.logger.Info("closing-feed")
	f.cancel()
	f.wg.Wait()
	return nil
}
