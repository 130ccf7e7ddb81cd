package events

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"
)

// StdoutWriter logs every event. It is the writer used when no broker is configured.
type StdoutWriter struct{}

func (s *StdoutWriter) Write(_ context.Context, topic string, e cloudevents.Event) error {
	zap.S().Named("job_events").Infow("job event",
		"topic", topic,
		"type", e.Type(),
		"id", e.ID(),
		"job_id", e.Subject(),
		"time", e.Time(),
		"data", string(e.Data()),
	)
	return nil
}

func (s *StdoutWriter) Close(context.Context) error {
	return nil
}
