package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/pkg/config"
	"github.com/noah-isme/hazmat-api/pkg/jobs"
	applogger "github.com/noah-isme/hazmat-api/pkg/logger"
	"github.com/noah-isme/hazmat-api/pkg/mailer"
)

// NotificationEvent names a workflow transition that produces an email.
type NotificationEvent string

const (
	EventContainerSubmitted   NotificationEvent = "container.submitted"
	EventContainerReviewed    NotificationEvent = "container.admin_reviewed"
	EventContainerRework      NotificationEvent = "container.rework_requested"
	EventContainerResubmitted NotificationEvent = "container.resubmitted"
	EventContainerDecided     NotificationEvent = "container.decided"
	EventDeletionRequested    NotificationEvent = "deletion.requested"
	EventDeletionReviewed     NotificationEvent = "deletion.admin_reviewed"
	EventDeletionDecided      NotificationEvent = "deletion.decided"
)

// Notice is one outbound notification. Recipients are resolved from RecipientID when set,
// otherwise from every active user holding Audience.
type Notice struct {
	Event         NotificationEvent
	Audience      models.UserRole
	RecipientID   string
	ContainerID   string
	ContainerCode string
	RequestID     string
	Status        string
	ActorName     string
	Comment       string
}

// Notifier dispatches notices. Implementations never report delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// NotificationService renders workflow notices and sends them by email, either inline or
// through a background queue.
type NotificationService struct {
	users       recipientDirectory
	mailer      mailer.Mailer
	queue       *jobs.Queue
	metrics     *MetricsService
	logger      *zap.Logger
	enabled     bool
	frontendURL string
}

// NewNotificationService constructs the service. A positive worker count enables async delivery.
func NewNotificationService(users recipientDirectory, m mailer.Mailer, cfg config.NotificationsConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		users:       users,
		mailer:      m,
		metrics:     metrics,
		logger:      logger,
		enabled:     cfg.Enabled,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
	if cfg.Enabled && cfg.Workers > 0 {
		svc.queue = jobs.NewQueue("notifications", svc.handleJob, jobs.QueueConfig{
			Workers:    cfg.Workers,
			BufferSize: cfg.BufferSize,
			MaxRetries: cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			DeadLetter: svc.deadLetter,
			Logger:     logger,
		})
	}
	return svc
}

// Start launches the delivery workers when async delivery is configured.
func (s *NotificationService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop drains pending deliveries.
func (s *NotificationService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Notify implements Notifier.
func (s *NotificationService) Notify(ctx context.Context, notice Notice) {
	if s == nil || !s.enabled || s.mailer == nil {
		return
	}
	logr := applogger.WithContext(ctx, s.logger)
	if s.queue != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: string(notice.Event), Payload: notice}
		if err := s.queue.Enqueue(job); err != nil {
			logr.Warn("notification dropped", zap.String("event", string(notice.Event)), zap.Error(err))
			s.metrics.RecordNotification(string(notice.Event), "dropped")
		}
		return
	}
	if err := s.deliver(ctx, notice); err != nil {
		logr.Warn("notification failed",
			zap.String("event", string(notice.Event)),
			zap.String("container_id", notice.ContainerID),
			zap.Error(err))
		s.metrics.RecordNotification(string(notice.Event), "failed")
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(Notice)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.deliver(ctx, notice)
}

func (s *NotificationService) deadLetter(job jobs.Job, err error) {
	s.logger.Warn("notification abandoned", zap.String("event", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
	s.metrics.RecordNotification(job.Type, "failed")
}

func (s *NotificationService) deliver(ctx context.Context, notice Notice) error {
	to, err := s.recipients(ctx, notice)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		s.logger.Debug("notification has no recipients", zap.String("event", string(notice.Event)))
		s.metrics.RecordNotification(string(notice.Event), "skipped")
		return nil
	}
	subject, body := s.render(notice)
	if err := s.mailer.Send(ctx, mailer.Message{To: to, Subject: subject, Body: body}); err != nil {
		return err
	}
	s.metrics.RecordNotification(string(notice.Event), "sent")
	return nil
}

func (s *NotificationService) recipients(ctx context.Context, notice Notice) ([]string, error) {
	if notice.RecipientID != "" {
		user, err := s.users.FindByID(ctx, notice.RecipientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("resolve recipient: %w", err)
		}
		if !user.Active {
			return nil, nil
		}
		return []string{user.Email}, nil
	}
	if notice.Audience == "" {
		return nil, nil
	}
	users, err := s.users.ListActiveByRole(ctx, notice.Audience)
	if err != nil {
		return nil, fmt.Errorf("resolve %s recipients: %w", notice.Audience, err)
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

func (s *NotificationService) render(n Notice) (string, string) {
	var subject, lead string
	switch n.Event {
	case EventContainerSubmitted:
		subject = fmt.Sprintf("Container %s submitted for review", n.ContainerCode)
		lead = fmt.Sprintf("%s submitted container %s. It is waiting for an admin review.", n.ActorName, n.ContainerCode)
	case EventContainerReviewed:
		subject = fmt.Sprintf("Container %s awaiting HOD decision", n.ContainerCode)
		lead = fmt.Sprintf("%s reviewed container %s. It is waiting for your decision.", n.ActorName, n.ContainerCode)
	case EventContainerRework:
		subject = fmt.Sprintf("Rework requested for container %s", n.ContainerCode)
		lead = fmt.Sprintf("%s asked for changes to container %s. Update and resubmit it.", n.ActorName, n.ContainerCode)
	case EventContainerResubmitted:
		subject = fmt.Sprintf("Container %s resubmitted", n.ContainerCode)
		lead = fmt.Sprintf("%s resubmitted container %s after rework.", n.ActorName, n.ContainerCode)
	case EventContainerDecided:
		subject = fmt.Sprintf("Container %s %s", n.ContainerCode, n.Status)
		lead = fmt.Sprintf("%s %s container %s.", n.ActorName, n.Status, n.ContainerCode)
	case EventDeletionRequested:
		subject = fmt.Sprintf("Deletion requested for container %s", n.ContainerCode)
		lead = fmt.Sprintf("%s asked to delete container %s.", n.ActorName, n.ContainerCode)
	case EventDeletionReviewed:
		subject = fmt.Sprintf("Deletion of container %s awaiting HOD decision", n.ContainerCode)
		lead = fmt.Sprintf("%s recommended to %s the deletion of container %s.", n.ActorName, n.Status, n.ContainerCode)
	case EventDeletionDecided:
		subject = fmt.Sprintf("Deletion request for container %s %s", n.ContainerCode, n.Status)
		lead = fmt.Sprintf("%s %s your request to delete container %s.", n.ActorName, n.Status, n.ContainerCode)
	default:
		subject = fmt.Sprintf("Update for container %s", n.ContainerCode)
		lead = fmt.Sprintf("Container %s changed.", n.ContainerCode)
	}

	var body strings.Builder
	body.WriteString(lead)
	body.WriteString("\n")
	if strings.TrimSpace(n.Comment) != "" {
		fmt.Fprintf(&body, "\nComment: %s\n", strings.TrimSpace(n.Comment))
	}
	if s.frontendURL != "" && n.ContainerID != "" {
		fmt.Fprintf(&body, "\n%s/containers/%s\n", s.frontendURL, n.ContainerID)
	}
	return subject, body.String()
}
