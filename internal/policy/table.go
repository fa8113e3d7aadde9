package policy

import (
	"fmt"
)

// Table is an immutable grant table. All lookups are map reads, so a
// *Table is safe for concurrent use once New returns.
type Table struct {
	grants    []ResourceGrant
	index     map[Resource]map[Action]map[Role]struct{}
	resources []Resource
	roles     []Role
}

// New builds a Table from grants, preserving their order for summaries.
// The input is copied; later changes to grants do not affect the table.
func New(grants ...ResourceGrant) (*Table, error) {
	if len(grants) == 0 {
		return nil, fmt.Errorf("%w: no resources defined", ErrInvalidTable)
	}

	t := &Table{
		grants:    make([]ResourceGrant, 0, len(grants)),
		index:     make(map[Resource]map[Action]map[Role]struct{}, len(grants)),
		resources: make([]Resource, 0, len(grants)),
	}
	seenRoles := make(map[Role]struct{})

	for _, rg := range grants {
		if rg.Resource == "" {
			return nil, fmt.Errorf("%w: resource name must not be empty", ErrInvalidTable)
		}
		if _, dup := t.index[rg.Resource]; dup {
			return nil, fmt.Errorf("%w: duplicate resource %q", ErrInvalidTable, rg.Resource)
		}
		if len(rg.Actions) == 0 {
			return nil, fmt.Errorf("%w: resource %q has no actions", ErrInvalidTable, rg.Resource)
		}

		actions := make(map[Action]map[Role]struct{}, len(rg.Actions))
		copied := ResourceGrant{Resource: rg.Resource, Actions: make([]ActionGrant, 0, len(rg.Actions))}
		for _, ag := range rg.Actions {
			if !ag.Action.IsValid() {
				return nil, fmt.Errorf("%w: resource %q has unknown action %q", ErrInvalidTable, rg.Resource, ag.Action)
			}
			if _, dup := actions[ag.Action]; dup {
				return nil, fmt.Errorf("%w: resource %q lists action %q twice", ErrInvalidTable, rg.Resource, ag.Action)
			}
			if len(ag.Roles) == 0 {
				return nil, fmt.Errorf("%w: %s:%s grants no roles", ErrInvalidTable, rg.Resource, ag.Action)
			}

			roles := make(map[Role]struct{}, len(ag.Roles))
			for _, role := range ag.Roles {
				if role == "" {
					return nil, fmt.Errorf("%w: %s:%s has an empty role", ErrInvalidTable, rg.Resource, ag.Action)
				}
				if _, dup := roles[role]; dup {
					return nil, fmt.Errorf("%w: %s:%s lists role %q twice", ErrInvalidTable, rg.Resource, ag.Action, role)
				}
				roles[role] = struct{}{}
				if _, ok := seenRoles[role]; !ok {
					seenRoles[role] = struct{}{}
					t.roles = append(t.roles, role)
				}
			}
			actions[ag.Action] = roles
			copied.Actions = append(copied.Actions, ActionGrant{
				Action: ag.Action,
				Roles:  append([]Role(nil), ag.Roles...),
			})
		}

		t.index[rg.Resource] = actions
		t.resources = append(t.resources, rg.Resource)
		t.grants = append(t.grants, copied)
	}

	return t, nil
}

// MustNew is New for tables known to be valid at build time.
func MustNew(grants ...ResourceGrant) *Table {
	t, err := New(grants...)
	if err != nil {
		panic(fmt.Sprintf("policy.MustNew: %v", err))
	}
	return t
}

// HasPermission reports whether role may perform action on resource.
// Unknown resources, actions and roles are denied.
func (t *Table) HasPermission(resource Resource, action Action, role Role) bool {
	actions, ok := t.index[resource]
	if !ok {
		return false
	}
	roles, ok := actions[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// RolePermissions returns, for every resource and action in the table,
// whether role is allowed. The result is freshly allocated per call.
func (t *Table) RolePermissions(role Role) map[Resource]map[Action]bool {
	out := make(map[Resource]map[Action]bool, len(t.grants))
	for _, rg := range t.grants {
		actions := make(map[Action]bool, len(rg.Actions))
		for _, ag := range rg.Actions {
			actions[ag.Action] = t.HasPermission(rg.Resource, ag.Action, role)
		}
		out[rg.Resource] = actions
	}
	return out
}

// RoleSummary is RolePermissions in table order.
func (t *Table) RoleSummary(role Role) []ResourcePermissions {
	out := make([]ResourcePermissions, 0, len(t.grants))
	for _, rg := range t.grants {
		row := ResourcePermissions{
			Resource: rg.Resource,
			Actions:  make([]ActionPermission, 0, len(rg.Actions)),
		}
		for _, ag := range rg.Actions {
			row.Actions = append(row.Actions, ActionPermission{
				Action:  ag.Action,
				Allowed: t.HasPermission(rg.Resource, ag.Action, role),
			})
		}
		out = append(out, row)
	}
	return out
}

// Resources returns the resources in table order.
func (t *Table) Resources() []Resource {
	return append([]Resource(nil), t.resources...)
}

// Roles returns every role named by at least one grant, in order of first
// appearance.
func (t *Table) Roles() []Role {
	return append([]Role(nil), t.roles...)
}

// Grants returns a deep copy of the grant table.
func (t *Table) Grants() []ResourceGrant {
	out := make([]ResourceGrant, len(t.grants))
	for i, rg := range t.grants {
		out[i] = ResourceGrant{Resource: rg.Resource, Actions: make([]ActionGrant, len(rg.Actions))}
		for j, ag := range rg.Actions {
			out[i].Actions[j] = ActionGrant{Action: ag.Action, Roles: append([]Role(nil), ag.Roles...)}
		}
	}
	return out
}

// Defines reports whether the table has an entry for resource and action.
func (t *Table) Defines(resource Resource, action Action) bool {
	actions, ok := t.index[resource]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// ValidateRequirements returns ErrUnknownRequirement for the first
// requirement the table does not define.
func (t *Table) ValidateRequirements(reqs ...Requirement) error {
	for _, r := range reqs {
		if !t.Defines(r.Resource, r.Action) {
			return fmt.Errorf("%w: %s", ErrUnknownRequirement, r)
		}
	}
	return nil
}
