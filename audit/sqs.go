package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/lightgrid/lightgrid-services-uploads/logging"
)

// SqsSink ships audit events to an SQS queue consumed by the audit-log
// service. Events are buffered on a channel and sent by a background
// worker; a full buffer or a send failure drops the event with a logged
// error rather than stalling an upload.
type SqsSink struct {
	client   *sqs.Client
	queueUrl string
	events   chan Event

	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const eventBufferSize = 256

func NewSqsSink(parent context.Context, client *sqs.Client, queueUrl string, l logging.Logger) *SqsSink {
	ctx, cancel := context.WithCancel(parent)

	return &SqsSink{
		client:   client,
		queueUrl: queueUrl,
		events:   make(chan Event, eventBufferSize),
		logger:   l.With("component", "audit"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *SqsSink) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sendLoop()
	}()
}

func (s *SqsSink) Record(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Error("audit buffer full, dropping event",
			"event_type", string(event.Type), "upload_id", event.UploadID)
	}
}

func (s *SqsSink) sendLoop() {
	for {
		select {
		case <-s.ctx.Done():
			// drain what is already buffered before exiting
			for {
				select {
				case event := <-s.events:
					s.send(event)
				default:
					return
				}
			}
		case event := <-s.events:
			s.send(event)
		}
	}
}

func (s *SqsSink) send(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal audit event", "event_type", string(event.Type), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueUrl),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		s.logger.Error("failed to publish audit event",
			"event_type", string(event.Type), "upload_id", event.UploadID, "error", err)
	}
}

func (s *SqsSink) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
