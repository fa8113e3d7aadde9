package middleware

import (
	"fmt"
	"net/http"

	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

// DecisionRecorder receives every guard decision. Record must not block.
type DecisionRecorder interface {
	Record(decision *models.AuthorizationDecision)
}

// DecisionObserver counts guard decisions
type DecisionObserver interface {
	ObserveDecision(guard, outcome string)
}

// Authorizer turns policy guards into HTTP middleware
type Authorizer struct {
	table    *policy.Table
	logger   *zap.Logger
	recorder DecisionRecorder
	observer DecisionObserver
	strict   bool
}

// AuthorizerOption configures an Authorizer
type AuthorizerOption func(*Authorizer)

// WithDecisionRecorder sends every decision to r
func WithDecisionRecorder(r DecisionRecorder) AuthorizerOption {
	return func(a *Authorizer) { a.recorder = r }
}

// WithDecisionObserver counts every decision with o
func WithDecisionObserver(o DecisionObserver) AuthorizerOption {
	return func(a *Authorizer) { a.observer = o }
}

// WithStrictRequirements makes guard construction panic when a guard names
// a resource or action the table does not define.
func WithStrictRequirements(strict bool) AuthorizerOption {
	return func(a *Authorizer) { a.strict = strict }
}

// NewAuthorizer creates an Authorizer over table. A nil table means the
// compiled default grant table.
func NewAuthorizer(table *policy.Table, logger *zap.Logger, opts ...AuthorizerOption) *Authorizer {
	if table == nil {
		table = policy.Default()
	}
	a := &Authorizer{
		table:  table,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Table returns the grant table the Authorizer checks against
func (a *Authorizer) Table() *policy.Table {
	return a.table
}

// Authorize requires the caller's role to be granted action on resource.
func (a *Authorizer) Authorize(resource policy.Resource, action policy.Action) func(http.Handler) http.Handler {
	return a.Guard(a.table.Authorize(resource, action))
}

// AuthorizeAny requires the caller's role to be granted at least one of
// reqs. With no requirements every request is rejected.
func (a *Authorizer) AuthorizeAny(reqs ...policy.Requirement) func(http.Handler) http.Handler {
	return a.Guard(a.table.AuthorizeAny(reqs...))
}

// Guard wraps next with g. Both rejection kinds answer 403 so existing
// clients see the same status for anonymous and under-privileged calls.
func (a *Authorizer) Guard(g policy.Guard) func(http.Handler) http.Handler {
	if err := g.Validate(); err != nil {
		if a.strict {
			panic(fmt.Sprintf("middleware: guard %s: %v", g, err))
		}
		a.logger.Warn("guard names undefined permission",
			zap.String("guard", g.String()),
			zap.Error(err))
	}
	guard := g.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)
			id := GetIdentityFromContext(ctx)

			err := g.Check(id)
			outcome := models.OutcomeFromError(err)

			if a.observer != nil {
				a.observer.ObserveDecision(guard, string(outcome))
			}
			if a.recorder != nil {
				a.recorder.Record(models.NewAuthorizationDecision(g, err).
					WithIdentity(id).
					WithRequest(requestID, r.Method, r.URL.Path, r.RemoteAddr))
			}

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("guard", guard),
				zap.String("outcome", string(outcome)),
			}
			if id != nil {
				fields = append(fields,
					zap.String("subject", id.Subject),
					zap.String("role", string(id.Role)))
			}

			if err != nil {
				a.logger.Warn("authorization denied", append(fields, zap.Error(err))...)
				_ = utils.WriteAuthorizationError(w, err)
				return
			}

			a.logger.Debug("authorization granted", fields...)
			next.ServeHTTP(w, r)
		})
	}
}
