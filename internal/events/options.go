package events

type ProducerOptions func(e *EventProducer)

func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		e.topic = topic
	}
}

func WithSource(source string) ProducerOptions {
	return func(e *EventProducer) {
		e.source = source
	}
}

// WithBufferSize bounds the number of events waiting for the writer.
func WithBufferSize(size int) ProducerOptions {
	return func(e *EventProducer) {
		e.bufferSize = size
	}
}
