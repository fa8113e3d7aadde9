// Package policy provides the permission policy engine for the clinic
// administration backend.
//
// The engine is a static grant table mapping each resource (patients,
// appointments, products, ...) and action (view, create, update, delete)
// to the roles allowed to perform it. The table is built once at process
// start and is read-only afterwards, so a *Table may be shared by any
// number of goroutines without locking.
//
// Lookups never fail: an unknown resource, unknown action or unknown role
// is simply denied. Guards built with Authorize and AuthorizeAny turn the
// boolean decision into a structured *AuthorizationError that HTTP
// middleware maps to a response.
package policy
