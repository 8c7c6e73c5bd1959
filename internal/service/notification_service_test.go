package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/jobs"
)

type mockNotificationStore struct {
	mu      sync.Mutex
	items   []models.Notification
	failing bool
	created chan struct{}
}

func (m *mockNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("db down")
	}
	m.items = append(m.items, *n)
	if m.created != nil {
		m.created <- struct{}{}
	}
	return nil
}

func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, filter models.ListFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *mockNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return sql.ErrNoRows
}

type deliveryCounter struct {
	mu                sync.Mutex
	delivered, failed int
}

func (d *deliveryCounter) RecordNotification(delivered bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if delivered {
		d.delivered++
	} else {
		d.failed++
	}
}

func TestNotificationInlineDelivery(t *testing.T) {
	store := &mockNotificationStore{}
	metrics := &deliveryCounter{}
	svc := NewNotificationService(store, metrics, nil)
	ctx := context.Background()
	alice := newActor("alice", models.RoleStudent, "college-a", "cse")

	svc.Notify(ctx, "alice", "Request approved", "Your achievement was approved.")
	svc.Notify(ctx, "", "ignored", "no recipient")

	items, page, err := svc.List(ctx, alice, true, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, metrics.delivered)

	require.NoError(t, svc.MarkRead(ctx, alice, items[0].ID))
	unread, _, err := svc.List(ctx, alice, true, models.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, unread)

	bob := newActor("bob", models.RoleStudent, "college-a", "cse")
	err = svc.MarkRead(ctx, bob, items[0].ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestNotificationQueuedDelivery(t *testing.T) {
	store := &mockNotificationStore{created: make(chan struct{}, 1)}
	svc := NewNotificationService(store, nil, nil)
	queue := jobs.NewQueue("notifications", jobs.QueueConfig{Workers: 1})
	queue.Handle(NotificationJobType, svc.Deliver)
	queue.Start(context.Background())
	defer queue.Stop()
	svc.AttachQueue(queue)

	svc.Notify(context.Background(), "alice", "Request rejected", "Your leave request was rejected.")
	select {
	case <-store.created:
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered by the queue")
	}
	assert.Equal(t, "alice", store.items[0].UserID)
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	store := &mockNotificationStore{failing: true}
	metrics := &deliveryCounter{}
	svc := NewNotificationService(store, metrics, nil)

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), "alice", "t", "m")
	})
	assert.Equal(t, 1, metrics.failed)
}
