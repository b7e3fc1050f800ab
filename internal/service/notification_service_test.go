package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/pkg/config"
)

func newDirectory() *userDirectoryStub {
	return &userDirectoryStub{
		users: map[string]models.User{
			submitter.ID: {ID: submitter.ID, Email: "sam@example.com", Active: true, Role: models.RoleUser},
			"u-9":        {ID: "u-9", Email: "gone@example.com", Active: false, Role: models.RoleUser},
		},
		byRole: map[models.UserRole][]models.User{
			models.RoleAdmin: {{ID: admin.ID, Email: "ada@example.com"}, {ID: "a-2", Email: "ops@example.com"}},
			models.RoleHOD:   {{ID: hod.ID, Email: "hal@example.com"}},
		},
	}
}

func inlineConfig() config.NotificationsConfig {
	return config.NotificationsConfig{Enabled: true, FrontendURL: "https://hazmat.example.com/"}
}

func TestNotificationServiceInlineAudience(t *testing.T) {
	mail := &mailerStub{}
	svc := NewNotificationService(newDirectory(), mail, inlineConfig(), NewMetricsService(), nil)

	svc.Notify(context.Background(), Notice{
		Event:         EventContainerSubmitted,
		Audience:      models.RoleAdmin,
		ContainerID:   "c-1",
		ContainerCode: "CHEM-01",
		ActorName:     submitter.Name,
	})

	sent := mail.messages()
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []string{"ada@example.com", "ops@example.com"}, sent[0].To)
	assert.Equal(t, "Container CHEM-01 submitted for review", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Sam Submitter submitted container CHEM-01")
	assert.Contains(t, sent[0].Body, "https://hazmat.example.com/containers/c-1")
}

func TestNotificationServiceInlineRecipient(t *testing.T) {
	mail := &mailerStub{}
	svc := NewNotificationService(newDirectory(), mail, inlineConfig(), nil, nil)

	svc.Notify(context.Background(), Notice{
		Event:         EventContainerDecided,
		RecipientID:   submitter.ID,
		ContainerCode: "CHEM-01",
		Status:        "rejected",
		ActorName:     hod.Name,
		Comment:       "  too close to the exit  ",
	})

	sent := mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"sam@example.com"}, sent[0].To)
	assert.Equal(t, "Container CHEM-01 rejected", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Comment: too close to the exit\n")
}

func TestNotificationServiceSkipsMissingOrInactiveRecipients(t *testing.T) {
	mail := &mailerStub{}
	svc := NewNotificationService(newDirectory(), mail, inlineConfig(), nil, nil)
	ctx := context.Background()

	svc.Notify(ctx, Notice{Event: EventContainerRework, RecipientID: "u-9", ContainerCode: "CHEM-01"})
	svc.Notify(ctx, Notice{Event: EventContainerRework, RecipientID: "u-404", ContainerCode: "CHEM-01"})
	svc.Notify(ctx, Notice{Event: EventContainerReviewed, Audience: models.RoleUser, ContainerCode: "CHEM-01"})

	assert.Empty(t, mail.messages())
}

func TestNotificationServiceFailuresDoNotPanic(t *testing.T) {
	ctx := context.Background()

	directory := newDirectory()
	directory.err = errors.New("connection reset")
	mail := &mailerStub{}
	svc := NewNotificationService(directory, mail, inlineConfig(), NewMetricsService(), nil)
	svc.Notify(ctx, Notice{Event: EventDeletionRequested, Audience: models.RoleAdmin, ContainerCode: "CHEM-01"})
	assert.Empty(t, mail.messages())

	failing := &mailerStub{fails: 1}
	svc = NewNotificationService(newDirectory(), failing, inlineConfig(), NewMetricsService(), nil)
	svc.Notify(ctx, Notice{Event: EventDeletionRequested, Audience: models.RoleAdmin, ContainerCode: "CHEM-01"})
	assert.Empty(t, failing.messages())
}

func TestNotificationServiceDisabled(t *testing.T) {
	mail := &mailerStub{}
	svc := NewNotificationService(newDirectory(), mail, config.NotificationsConfig{Enabled: false}, nil, nil)
	svc.Notify(context.Background(), Notice{Event: EventContainerSubmitted, Audience: models.RoleAdmin})
	assert.Empty(t, mail.messages())

	var nilSvc *NotificationService
	nilSvc.Notify(context.Background(), Notice{Event: EventContainerSubmitted})
}

func TestNotificationServiceAsyncDelivery(t *testing.T) {
	mail := &mailerStub{}
	cfg := inlineConfig()
	cfg.Workers = 2
	cfg.BufferSize = 8
	svc := NewNotificationService(newDirectory(), mail, cfg, nil, nil)
	svc.Start(context.Background())

	svc.Notify(context.Background(), Notice{Event: EventContainerReviewed, Audience: models.RoleHOD, ContainerCode: "CHEM-01"})
	svc.Notify(context.Background(), Notice{Event: EventDeletionReviewed, Audience: models.RoleHOD, ContainerCode: "CHEM-02", Status: "approve"})
	svc.Stop()

	sent := mail.messages()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.Equal(t, []string{"hal@example.com"}, msg.To)
	}
}

func TestNotificationServiceAsyncRetry(t *testing.T) {
	mail := &mailerStub{fails: 1}
	cfg := inlineConfig()
	cfg.Workers = 1
	cfg.Retries = 2
	cfg.RetryDelay = 10 * time.Millisecond
	svc := NewNotificationService(newDirectory(), mail, cfg, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notice{Event: EventContainerSubmitted, Audience: models.RoleAdmin, ContainerCode: "CHEM-01"})

	require.Eventually(t, func() bool {
		return len(mail.messages()) == 1
	}, time.Second, 5*time.Millisecond)
}
