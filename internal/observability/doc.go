// Package observability provides structured logging and authorization
// decision metrics for the clinic admin API.
package observability
