package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	JobMessageKind string = "fold.planner.events.job"
	defaultTopic   string = "fold.planner.events"
	defaultSource  string = "fold.planner"
	closeTimeout          = 5 * time.Second
)

var ErrProducerClosed = errors.New("event producer is closed")

// Writer delivers events to their destination.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer turns job transitions into cloud events. Callers only append to a bounded
// buffer; a single goroutine hands the events to the writer.
type EventProducer struct {
	buffer     *buffer
	bufferSize int
	notifyCh   chan struct{}
	doneCh     chan struct{}
	stoppedCh  chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex
	closed     bool
	writer     Writer
	topic      string
	source     string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		notifyCh:  make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		writer:    w,
		topic:     defaultTopic,
		source:    defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}
	ep.buffer = newBuffer(ep.bufferSize)

	go ep.run()
	return ep
}

// Write queues an event of the given kind with body as its json payload.
func (ep *EventProducer) Write(ctx context.Context, kind string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return ep.enqueue(message{kind: kind, at: time.Now(), data: data})
}

// WriteJobEvent queues a job transition. The event subject is the job id and its time is
// the moment of the transition.
func (ep *EventProducer) WriteJobEvent(_ context.Context, e JobEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return ep.enqueue(message{kind: JobMessageKind, subject: e.JobID, at: at, data: data})
}

// enqueue and Close share mu so an accepted message is always pushed before the final
// flush starts.
func (ep *EventProducer) enqueue(msg message) error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return ErrProducerClosed
	}
	err := ep.buffer.push(msg)
	ep.mu.Unlock()
	if err != nil {
		return fmt.Errorf("dropping %s event for %q: %w", msg.kind, msg.subject, err)
	}

	select {
	case ep.notifyCh <- struct{}{}:
	default:
	}
	return nil
}

// Close delivers the pending events and closes the writer.
func (ep *EventProducer) Close() error {
	var closeErr error
	ep.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		ep.mu.Lock()
		ep.closed = true
		close(ep.doneCh)
		ep.mu.Unlock()

		g, ctx := errgroup.WithContext(closeCtx)
		g.Go(func() error {
			select {
			case <-ep.stoppedCh:
			case <-ctx.Done():
				return ctx.Err()
			}
			return ep.writer.Close(ctx)
		})
		if err := g.Wait(); err != nil {
			zap.S().Named("event_producer").Errorw("event producer closed with error", "error", err)
			closeErr = err
			return
		}

		zap.S().Named("event_producer").Info("event producer closed")
	})

	return closeErr
}

func (ep *EventProducer) run() {
	defer close(ep.stoppedCh)

	for {
		ep.flush()

		select {
		case <-ep.notifyCh:
		case <-ep.doneCh:
			ep.flush()
			return
		}
	}
}

func (ep *EventProducer) flush() {
	for _, msg := range ep.buffer.drain() {
		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource(ep.source)
		e.SetType(msg.kind)
		e.SetTime(msg.at)
		if msg.subject != "" {
			e.SetSubject(msg.subject)
		}
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.data)

		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("event_producer").Errorw("failed to deliver event", "error", err, "type", msg.kind, "subject", msg.subject)
		}
	}
}
