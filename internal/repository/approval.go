package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-hub-api/internal/models"
)

// resolveApproval writes a terminal approval only while the row is still pending.
// It returns sql.ErrNoRows when the row is missing or was already resolved.
func resolveApproval(ctx context.Context, ext sqlx.ExtContext, table, id string, approval models.Approval) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5, updated_at = $6 WHERE id = $1 AND status = $7`, table)
	res, err := ext.ExecContext(ctx, query, id, approval.Status, approval.ApprovedBy, approval.ApprovedAt, approval.RejectionReason, time.Now().UTC(), models.ApprovalPending)
	if err != nil {
		return fmt.Errorf("resolve %s approval: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve %s approval rows: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// execAffected runs a statement and maps zero affected rows to sql.ErrNoRows.
func execAffected(ctx context.Context, ext sqlx.ExecerContext, query string, args ...interface{}) error {
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
