package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/jobs"
)

// NotificationJobType routes notification deliveries on the job queue.
const NotificationJobType = "notification.deliver"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, filter models.ListFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type notificationMetrics interface {
	RecordNotification(delivered bool)
}

// NotificationService writes in-app notifications. Delivery goes through the job
// queue when one is attached and falls back to a direct write otherwise.
type NotificationService struct {
	repo    notificationStore
	queue   jobEnqueuer
	metrics notificationMetrics
	logger  *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationStore, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, metrics: metrics, logger: logger}
}

// AttachQueue routes future deliveries through queue.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify schedules a notification for userID. It never fails the caller.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string) {
	if userID == "" {
		return
	}
	n := models.Notification{ID: uuid.NewString(), UserID: userID, Title: title, Message: message}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: NotificationJobType, Payload: n})
		if err == nil {
			return
		}
		s.logger.Warn("notification queue unavailable, delivering inline", zap.Error(err))
	}
	if err := s.Deliver(ctx, jobs.Job{ID: n.ID, Type: NotificationJobType, Payload: n}); err != nil {
		s.logger.Warn("failed to deliver notification", zap.String("user_id", userID), zap.Error(err))
	}
}

// Deliver is the queue handler persisting one notification.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.repo.Create(ctx, &n)
	if s.metrics != nil {
		s.metrics.RecordNotification(err == nil)
	}
	return err
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *models.User, unreadOnly bool, filter models.ListFilter) ([]models.Notification, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, paginate(filter, total), nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.User, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id, actor.ID); err != nil {
		return lookupError(err, "notification")
	}
	return nil
}
