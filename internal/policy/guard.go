package policy

// Guard is a reusable authorization check bound to one or more
// requirements. A Guard holds configuration only; Check is safe to call
// from any goroutine.
type Guard struct {
	table        *Table
	requirements []Requirement
}

// Authorize builds a guard that requires action on resource.
func (t *Table) Authorize(resource Resource, action Action) Guard {
	return Guard{table: t, requirements: []Requirement{Require(resource, action)}}
}

// AuthorizeAny builds a guard satisfied by any one of reqs. A guard with
// no requirements rejects every caller.
func (t *Table) AuthorizeAny(reqs ...Requirement) Guard {
	return Guard{table: t, requirements: append([]Requirement(nil), reqs...)}
}

// Authorize builds a guard against the default table.
func Authorize(resource Resource, action Action) Guard {
	return defaultTable.Authorize(resource, action)
}

// AuthorizeAny builds an any-of guard against the default table.
func AuthorizeAny(reqs ...Requirement) Guard {
	return defaultTable.AuthorizeAny(reqs...)
}

// Check returns nil when id may proceed. Otherwise it returns an
// *AuthorizationError of kind KindUnauthenticated (no identity or no role)
// or KindForbidden (no requirement granted to the role).
func (g Guard) Check(id *Identity) error {
	if id == nil || id.Role == "" {
		return unauthenticated(g.Requirements())
	}
	for _, r := range g.requirements {
		if g.table.HasPermission(r.Resource, r.Action, id.Role) {
			return nil
		}
	}
	return forbidden(id.Role, g.Requirements())
}

// Allows is the boolean form of Check.
func (g Guard) Allows(id *Identity) bool {
	return g.Check(id) == nil
}

// Requirements returns a copy of the guard's requirements.
func (g Guard) Requirements() []Requirement {
	return append([]Requirement(nil), g.requirements...)
}

// Validate reports requirements the guard's table does not define.
func (g Guard) Validate() error {
	return g.table.ValidateRequirements(g.requirements...)
}

func (g Guard) String() string {
	switch len(g.requirements) {
	case 0:
		return "any()"
	case 1:
		return g.requirements[0].String()
	}
	s := "any("
	for i, r := range g.requirements {
		if i > 0 {
			s += ", "
		}
		s += r.String()
	}
	return s + ")"
}
