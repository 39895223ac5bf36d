package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/mail"
	"github.com/velora-app/velora-api/pkg/config"
	"github.com/velora-app/velora-api/pkg/jobs"
)

const jobTypeEmail = "email"

type emailPayload struct {
	To      string
	Subject string
	Body    string
}

// NotificationService fans client-facing emails out through a worker queue.
// Booking confirmations are fire-and-forget; cancellation notices triggered by
// forced deletions are sent synchronously so the caller can report the count.
type NotificationService struct {
	queue  *jobs.Queue
	sender mail.Sender
	logger *zap.Logger
}

// NewNotificationService builds the service and its backing queue.
func NewNotificationService(sender mail.Sender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) handle(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.sender.Send(payload.To, payload.Subject, payload.Body)
}

// EnqueueBookingConfirmation schedules a confirmation email without blocking
// the booking response. Failures are logged, never surfaced to the client.
func (s *NotificationService) EnqueueBookingConfirmation(to, clientName string, start time.Time) {
	if to == "" {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nYour appointment on %s is confirmed.\n", clientName, start.Format("Monday 2 January 2006 at 15:04"))
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeEmail,
		Payload: emailPayload{To: to, Subject: "Appointment confirmed", Body: body},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue booking confirmation", zap.String("to", to), zap.Error(err))
	}
}

// SendCancellationNotice delivers a cancellation email synchronously and
// reports whether it went out.
func (s *NotificationService) SendCancellationNotice(to, clientName, what string) bool {
	if to == "" {
		return false
	}
	body := fmt.Sprintf("Hello %s,\n\n%s has been cancelled. Please contact your professional for details.\n", clientName, what)
	if err := s.sender.Send(to, "Booking cancelled", body); err != nil {
		s.logger.Warn("cancellation notice failed", zap.String("to", to), zap.Error(err))
		return false
	}
	return true
}
