package models

import (
	"encoding/json"
	"time"
)

// Audited actions. Auth events are written by the auth service; the rest by
// the audit middleware on state-changing staff routes.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionApprove        = "ENROLLMENT_APPROVE"
	AuditActionReject         = "ENROLLMENT_REJECT"
	AuditActionWalkIn         = "ENROLLMENT_WALK_IN"
	AuditActionPayment        = "PAYMENT_RECORD"
	AuditActionGradeUpdate    = "GRADE_UPDATE"
)

// Resources named in audit rows.
const (
	AuditResourceAuth       = "auth"
	AuditResourceEnrollment = "enrollments"
	AuditResourcePayment    = "payments"
	AuditResourceGrade      = "grades"
)

// AuditLog is one append-only trail row. Values are stored as JSONB.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  json.RawMessage `db:"old_values" json:"old_values,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
