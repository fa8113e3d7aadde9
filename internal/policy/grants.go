package policy

func adminOnly() []Role         { return []Role{RoleAdministrator} }
func adminAndTherapist() []Role { return []Role{RoleAdministrator, RoleTherapist} }
func allRoles() []Role          { return []Role{RoleAdministrator, RoleTherapist, RoleCoordinator} }

// clinicalGrants covers resources therapists manage alongside admins.
func clinicalGrants(resource Resource, viewers func() []Role) ResourceGrant {
	return ResourceGrant{
		Resource: resource,
		Actions: []ActionGrant{
			{Action: ActionView, Roles: viewers()},
			{Action: ActionCreate, Roles: adminAndTherapist()},
			{Action: ActionUpdate, Roles: adminAndTherapist()},
			{Action: ActionDelete, Roles: adminOnly()},
		},
	}
}

func adminGrants(resource Resource, viewers func() []Role) ResourceGrant {
	return ResourceGrant{
		Resource: resource,
		Actions: []ActionGrant{
			{Action: ActionView, Roles: viewers()},
			{Action: ActionCreate, Roles: adminOnly()},
			{Action: ActionUpdate, Roles: adminOnly()},
			{Action: ActionDelete, Roles: adminOnly()},
		},
	}
}

// DefaultGrants returns the clinic grant table.
func DefaultGrants() []ResourceGrant {
	return []ResourceGrant{
		clinicalGrants(ResourcePatients, allRoles),
		adminGrants(ResourceTherapists, adminAndTherapist),
		clinicalGrants(ResourceAppointments, allRoles),
		clinicalGrants(ResourceCoordinators, allRoles),
		clinicalGrants(ResourceDiagnoses, adminAndTherapist),
		adminGrants(ResourceProducts, adminOnly),
		adminGrants(ResourcePurchases, adminOnly),
		adminGrants(ResourceWarehouse, adminOnly),
		adminGrants(ResourceLoans, adminOnly),
		adminGrants(ResourceUsers, adminOnly),
	}
}

var defaultTable = MustNew(DefaultGrants()...)

// Default returns the process-wide clinic grant table.
func Default() *Table {
	return defaultTable
}

// HasPermission checks the default table.
func HasPermission(resource Resource, action Action, role Role) bool {
	return defaultTable.HasPermission(resource, action, role)
}

// RolePermissions summarizes role against the default table.
func RolePermissions(role Role) map[Resource]map[Action]bool {
	return defaultTable.RolePermissions(role)
}
