package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/upb/clinic-admin/internal/policy"
)

// DecisionOutcome is the result of one guard evaluation
type DecisionOutcome string

const (
	OutcomeAllowed         DecisionOutcome = "allowed"
	OutcomeForbidden       DecisionOutcome = "forbidden"
	OutcomeUnauthenticated DecisionOutcome = "unauthenticated"
)

// IsValid reports whether o is a known outcome
func (o DecisionOutcome) IsValid() bool {
	switch o {
	case OutcomeAllowed, OutcomeForbidden, OutcomeUnauthenticated:
		return true
	}
	return false
}

// OutcomeFromError maps a guard result to an outcome.
func OutcomeFromError(err error) DecisionOutcome {
	if err == nil {
		return OutcomeAllowed
	}
	if authErr, ok := policy.AsAuthorizationError(err); ok && authErr.Kind == policy.KindUnauthenticated {
		return OutcomeUnauthenticated
	}
	return OutcomeForbidden
}

// AuthorizationDecision is one recorded guard evaluation
type AuthorizationDecision struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Subject      string          `json:"subject,omitempty" db:"subject"`
	Role         string          `json:"role,omitempty" db:"role"`
	Guard        string          `json:"guard" db:"guard"`
	Requirements json.RawMessage `json:"requirements" db:"requirements"` // JSONB list of {resource, action}
	Outcome      DecisionOutcome `json:"outcome" db:"outcome"`
	Reason       string          `json:"reason,omitempty" db:"reason"`
	Method       string          `json:"method" db:"method"`
	Path         string          `json:"path" db:"path"`
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuthorizationDecision model
func (AuthorizationDecision) TableName() string {
	return "authorization_decisions"
}

// NewAuthorizationDecision records the result err of evaluating guard.
func NewAuthorizationDecision(guard policy.Guard, err error) *AuthorizationDecision {
	d := &AuthorizationDecision{
		ID:        uuid.New(),
		Guard:     guard.String(),
		Outcome:   OutcomeFromError(err),
		Timestamp: time.Now().UTC(),
	}
	if data, mErr := json.Marshal(guard.Requirements()); mErr == nil {
		d.Requirements = data
	}
	if err != nil {
		d.Reason = err.Error()
	}
	return d
}

// WithIdentity sets the caller
func (d *AuthorizationDecision) WithIdentity(id *policy.Identity) *AuthorizationDecision {
	if id != nil {
		d.Subject = id.Subject
		d.Role = string(id.Role)
	}
	return d
}

// WithRequest sets request metadata
func (d *AuthorizationDecision) WithRequest(requestID, method, path, ipAddress string) *AuthorizationDecision {
	d.RequestID = requestID
	d.Method = method
	d.Path = path
	d.IPAddress = ipAddress
	return d
}

// DecisionFilter narrows a decision listing. Empty fields match everything.
type DecisionFilter struct {
	Outcome DecisionOutcome
	Role    string
}
