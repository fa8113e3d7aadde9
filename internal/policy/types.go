package policy

import "fmt"

// Role is the identity class assigned to an authenticated caller.
// Roles are opaque labels; there is no hierarchy between them.
type Role string

// Resource is a protected domain entity type.
type Resource string

// Action is one of the CRUD-style operations a caller may request.
type Action string

const (
	RoleAdministrator Role = "Administrator"
	RoleTherapist     Role = "Therapist"
	RoleCoordinator   Role = "Coordinator"
)

const (
	ResourcePatients     Resource = "patients"
	ResourceTherapists   Resource = "therapists"
	ResourceAppointments Resource = "appointments"
	ResourceCoordinators Resource = "coordinators"
	ResourceDiagnoses    Resource = "diagnoses"
	ResourceProducts     Resource = "products"
	ResourcePurchases    Resource = "purchases"
	ResourceWarehouse    Resource = "warehouse"
	ResourceLoans        Resource = "loans"
	ResourceUsers        Resource = "users"
)

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists the canonical actions in display order.
var Actions = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}

// IsValid reports whether a is one of the canonical actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Requirement is a single (resource, action) pair a guard checks.
type Requirement struct {
	Resource Resource `json:"resource" yaml:"resource" validate:"required"`
	Action   Action   `json:"action" yaml:"action" validate:"required"`
}

// Require is shorthand for building a Requirement.
func Require(resource Resource, action Action) Requirement {
	return Requirement{Resource: resource, Action: action}
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s:%s", r.Resource, r.Action)
}

// Identity is the authenticated caller as seen by the policy engine.
// Only Role takes part in decisions; Subject is carried for logging.
type Identity struct {
	Subject string `json:"subject,omitempty"`
	Role    Role   `json:"role"`
}

// ActionGrant lists the roles allowed to perform one action.
type ActionGrant struct {
	Action Action `json:"action" yaml:"action"`
	Roles  []Role `json:"roles" yaml:"roles"`
}

// ResourceGrant lists the action grants of one resource, in table order.
type ResourceGrant struct {
	Resource Resource      `json:"resource" yaml:"resource"`
	Actions  []ActionGrant `json:"actions" yaml:"actions"`
}

// ActionPermission is the decision for one action in a role summary.
type ActionPermission struct {
	Action  Action `json:"action" yaml:"action"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
}

// ResourcePermissions is one row of a role summary.
type ResourcePermissions struct {
	Resource Resource           `json:"resource" yaml:"resource"`
	Actions  []ActionPermission `json:"actions" yaml:"actions"`
}
