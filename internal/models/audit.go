package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionCodeLogin         = "CODE_LOGIN"
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionContainerSubmit   = "CONTAINER_SUBMIT"
	AuditActionContainerReview   = "CONTAINER_ADMIN_REVIEW"
	AuditActionContainerRework   = "CONTAINER_REWORK_REQUEST"
	AuditActionContainerResubmit = "CONTAINER_RESUBMIT"
	AuditActionContainerApprove  = "CONTAINER_APPROVE"
	AuditActionContainerReject   = "CONTAINER_REJECT"
	AuditActionContainerDelete   = "CONTAINER_DELETE"
	AuditActionDeletionCreate    = "DELETION_REQUEST_CREATE"
	AuditActionDeletionReview    = "DELETION_REQUEST_REVIEW"
	AuditActionDeletionApprove   = "DELETION_REQUEST_APPROVE"
	AuditActionDeletionReject    = "DELETION_REQUEST_REJECT"
	AuditActionAttachmentUpload  = "ATTACHMENT_UPLOAD"
	AuditActionAttachmentFetch   = "ATTACHMENT_DOWNLOAD"
	AuditActionRegisterExport    = "CONTAINER_REGISTER_EXPORT"
)

// Audit resources.
const (
	AuditResourceUser            = "user"
	AuditResourceContainer       = "container"
	AuditResourceDeletionRequest = "deletion_request"
	AuditResourceAttachment      = "attachment"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
