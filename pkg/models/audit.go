package models

import "time"

// AuditLog is an append-only record of every read or write crossing the
// plugin/consumer or export boundary: who, what, when, result size.
type AuditLog struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Actor       string    `json:"actor" db:"actor"` // consumer/plugin identifier
	Action      string    `json:"action" db:"action"`
	Resource    string    `json:"resource" db:"resource"`
	Success     bool      `json:"success" db:"success"`
	Error       *string   `json:"error,omitempty" db:"error"`
	ResultCount *int      `json:"result_count,omitempty" db:"result_count"`
	RemoteIP    *string   `json:"remote_ip,omitempty" db:"remote_ip"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewAuditLog starts a successful entry; chain With* to fill it in
func NewAuditLog(userID, actor, action, resource string) *AuditLog {
	return &AuditLog{
		UserID:    userID,
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Success:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// WithError marks the entry failed with the given reason
func (a *AuditLog) WithError(err error) *AuditLog {
	a.Success = false
	if err != nil {
		msg := err.Error()
		a.Error = &msg
	}
	return a
}

// WithResultCount records how many rows the crossing returned
func (a *AuditLog) WithResultCount(n int) *AuditLog {
	a.ResultCount = &n
	return a
}

// WithRemoteIP records the caller address
func (a *AuditLog) WithRemoteIP(ip string) *AuditLog {
	if ip != "" {
		a.RemoteIP = &ip
	}
	return a
}

// AuditLogListResponse is the response for listing audit entries
type AuditLogListResponse struct {
	Items      []AuditLog `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
