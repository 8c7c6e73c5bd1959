package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	"github.com/noah-isme/college-hub-api/pkg/database"
)

const eventSelect = `SELECT e.id, e.name, e.description, e.start_date, e.end_date, e.target_years, e.target_departments, e.circular_photo,
        e.created_by, e.college_id, e.status, e.approved_by, e.approved_at, e.rejection_reason, e.created_at, e.updated_at,
        TRIM(u.first_name || ' ' || u.last_name) AS creator_name`

const eventFrom = `FROM events e JOIN users u ON u.id = e.created_by`

const eventRequestSelect = `SELECT epr.id, epr.event_id, epr.requested_by, epr.status, epr.approved_by, epr.approved_at, epr.rejection_reason,
        epr.created_at, epr.updated_at, e.name AS event_name, e.college_id, TRIM(u.first_name || ' ' || u.last_name) AS requester_name`

const eventRequestFrom = `FROM event_permission_requests epr JOIN events e ON e.id = epr.event_id JOIN users u ON u.id = epr.requested_by`

// EventRepository manages persistence for events and their permission requests.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events visible under scope.
func (r *EventRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventDetail, int, error) {
	clause, args := eventScopePredicate(scope, nil)
	conditions := []string{clause}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"e.name"}, args)
		conditions = append(conditions, cond)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "e.name",
		"start_date": "e.start_date",
		"status":     "e.status",
		"created_at": "e.created_at",
	}, "e.start_date")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", eventSelect, eventFrom, where, order, size, offset)
	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM events e"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID fetches an event visible under scope.
func (r *EventRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.EventDetail, error) {
	clause, args := eventScopePredicate(scope, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE e.id = $1 AND %s", eventSelect, eventFrom, clause)
	var detail models.EventDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Recent returns the newest events of a college.
func (r *EventRepository) Recent(ctx context.Context, collegeID string, limit int) ([]models.EventDetail, error) {
	query := fmt.Sprintf("%s %s WHERE e.college_id = $1 ORDER BY e.created_at DESC LIMIT %d", eventSelect, eventFrom, limit)
	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, collegeID); err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// Create inserts an event and, when given, its companion permission request in one transaction.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, request *models.EventPermissionRequest) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO events (id, name, description, start_date, end_date, target_years, target_departments, circular_photo,
        created_by, college_id, status, approved_by, approved_at, rejection_reason, created_at, updated_at)
        VALUES (:id, :name, :description, :start_date, :end_date, :target_years, :target_departments, :circular_photo,
        :created_by, :college_id, :status, :approved_by, :approved_at, :rejection_reason, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if request == nil {
			return nil
		}
		if request.ID == "" {
			request.ID = uuid.NewString()
		}
		request.EventID = event.ID
		request.CreatedAt = now
		request.UpdatedAt = now
		const requestQuery = `INSERT INTO event_permission_requests (id, event_id, requested_by, status, approved_by, approved_at, rejection_reason, created_at, updated_at)
        VALUES (:id, :event_id, :requested_by, :status, :approved_by, :approved_at, :rejection_reason, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, requestQuery, request); err != nil {
			return fmt.Errorf("create event permission request: %w", err)
		}
		return nil
	})
}

// Update rewrites the descriptive fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, description = :description, start_date = :start_date, end_date = :end_date,
        target_years = :target_years, target_departments = :target_departments, circular_photo = :circular_photo, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event; its permission request cascades.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM events WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListRequests returns event permission requests visible under scope.
func (r *EventRepository) ListRequests(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventRequestDetail, int, error) {
	clause, args := scopePredicate(scope, eventRequestScopeColumn, nil)
	conditions := []string{clause}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("epr.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY epr.created_at DESC LIMIT %d OFFSET %d", eventRequestSelect, eventRequestFrom, where, size, offset)
	var requests []models.EventRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list event requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+eventRequestFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count event requests: %w", err)
	}
	return requests, total, nil
}

// FindRequestByID fetches an event permission request visible under scope.
func (r *EventRepository) FindRequestByID(ctx context.Context, id string, scope policy.Scope) (*models.EventRequestDetail, error) {
	clause, args := scopePredicate(scope, eventRequestScopeColumn, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE epr.id = $1 AND %s", eventRequestSelect, eventRequestFrom, clause)
	var detail models.EventRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindRequestByEventID fetches the companion request of an event.
func (r *EventRepository) FindRequestByEventID(ctx context.Context, eventID string) (*models.EventRequestDetail, error) {
	query := fmt.Sprintf("%s %s WHERE epr.event_id = $1", eventRequestSelect, eventRequestFrom)
	var detail models.EventRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, eventID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountPendingRequests returns pending event requests visible under scope.
func (r *EventRepository) CountPendingRequests(ctx context.Context, scope policy.Scope) (int, error) {
	clause, args := scopePredicate(scope, eventRequestScopeColumn, []interface{}{models.ApprovalPending})
	query := "SELECT COUNT(*) " + eventRequestFrom + " WHERE epr.status = $1 AND " + clause
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count pending event requests: %w", err)
	}
	return total, nil
}

// ResolveRequest records a decision on the request and mirrors it onto the event
// in one transaction. Either row no longer pending yields sql.ErrNoRows.
func (r *EventRepository) ResolveRequest(ctx context.Context, requestID, eventID string, approval models.Approval) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := resolveApproval(ctx, tx, "event_permission_requests", requestID, approval); err != nil {
			return err
		}
		return resolveApproval(ctx, tx, "events", eventID, approval)
	})
}
