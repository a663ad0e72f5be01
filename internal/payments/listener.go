package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/shared/apperr"
	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Confirmer is the hold manager operation driven by payment completions
type Confirmer interface {
	ConfirmByPayment(ctx context.Context, userID uuid.UUID, paymentID string) (*holds.ConfirmResponse, error)
}

type ConsumerConfig struct {
	Brokers              []string
	ClientID             string
	GroupID              string
	Topics               []string
	Workers              int
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		ClientID:             "seat-inventory",
		GroupID:              "seat-inventory-payments",
		Topics:               []string{"payments.completed"},
		Workers:              1,
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// Handler turns one payment event into a hold confirmation
type Handler struct {
	repo       Repository
	confirmer  Confirmer
	log        *logger.Logger
	maxRetries int
	backoff    time.Duration
}

func NewHandler(repo Repository, confirmer Confirmer, maxRetries int, backoff time.Duration) *Handler {
	return &Handler{
		repo:       repo,
		confirmer:  confirmer,
		log:        logger.GetDefault(),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Handle processes a message value. A nil return means the message is done
// with, either applied or deliberately dropped; the caller may commit it.
func (h *Handler) Handle(ctx context.Context, value []byte) error {
	event, err := ParsePaymentCompletedEvent(value)
	if err != nil {
		h.log.WarnContext(ctx, "dropping malformed payment event", "error", err)
		return nil
	}

	if h.repo != nil {
		if err := h.executeWithRetry(ctx, func() error {
			return h.repo.Record(ctx, event.ToPayment())
		}); err != nil {
			return err
		}
	}

	if event.Status != PaymentStatusCompleted {
		h.log.DebugContext(ctx, "ignoring payment event", "payment_id", event.PaymentID, "status", string(event.Status))
		return nil
	}

	var result *holds.ConfirmResponse
	err = h.executeWithRetry(ctx, func() error {
		var confirmErr error
		result, confirmErr = h.confirmer.ConfirmByPayment(ctx, event.UserID, event.PaymentID)
		return confirmErr
	})
	switch {
	case err == nil:
		h.log.InfoContext(ctx, "reservation confirmed from payment event",
			"payment_id", event.PaymentID, "user_id", event.UserID.String(), "seats", result.ConfirmedSeatsCount)
		return nil
	case isFinal(err):
		// No pending hold for this payment, or it can no longer be confirmed
		h.log.WarnContext(ctx, "payment event did not confirm a reservation",
			"payment_id", event.PaymentID, "user_id", event.UserID.String(), "error", err)
		return nil
	default:
		return err
	}
}

// isFinal reports errors that retrying will not change
func isFinal(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindInvalid, apperr.KindNotFound, apperr.KindForbidden, apperr.KindConflict, apperr.KindInconsistency:
		return true
	}
	return false
}

func (h *Handler) executeWithRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || isFinal(err) || attempt >= h.maxRetries {
			return err
		}

		// Exponential backoff
		delay := h.backoff * time.Duration(1<<attempt)
		h.log.WarnContext(ctx, "retrying payment event", "attempt", attempt+1, "delay", delay.String(), "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Listener consumes payment completion events through a Kafka consumer group
type Listener struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       *Handler
	log           *logger.Logger
	closeOnce     sync.Once
}

func NewListener(config *ConsumerConfig, handler *Handler) (*Listener, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Listener{
		consumerGroup: consumerGroup,
		config:        config,
		handler:       handler,
		log:           logger.GetDefault(),
	}, nil
}

// Run consumes until ctx is cancelled, then closes the group
func (l *Listener) Run(ctx context.Context) error {
	workers := l.config.Workers
	if workers < 1 {
		workers = 1
	}
	l.log.Info("payment listener started", "topics", l.config.Topics, "group", l.config.GroupID, "workers", workers)

	go l.handleErrors()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			l.runWorker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	return l.Close()
}

func (l *Listener) runWorker(ctx context.Context, workerID int) {
	handler := &consumerGroupHandler{handler: l.handler, workerID: workerID, log: l.log}

	for {
		if err := l.consumerGroup.Consume(ctx, l.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			l.log.Error("payment listener consume failed", "worker", workerID, "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			l.log.Info("payment listener worker shutting down", "worker", workerID)
			return
		}
	}
}

func (l *Listener) handleErrors() {
	for err := range l.consumerGroup.Errors() {
		l.log.Error("payment consumer group error", "error", err)
	}
}

func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if closeErr := l.consumerGroup.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close consumer group: %w", closeErr)
			return
		}
		l.log.Info("payment listener stopped")
	})
	return err
}

type consumerGroupHandler struct {
	handler  *Handler
	workerID int
	log      *logger.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("payment consumer session started", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("payment consumer session ended", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if err := h.handler.Handle(session.Context(), message.Value); err != nil {
				h.log.WithError(err).WithFields(map[string]interface{}{
					"worker":    h.workerID,
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("failed to process payment event")
				// Offsets commit per partition, so marking a later message would
				// skip this one. End the claim instead; the next session resumes
				// from the last committed offset.
				select {
				case <-time.After(h.handler.backoff):
				case <-session.Context().Done():
				}
				return fmt.Errorf("payment event %s/%d/%d: %w", message.Topic, message.Partition, message.Offset, err)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
