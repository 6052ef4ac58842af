// Package scheduler bounds the outbound request rate of a single remote service.
//
// A Scheduler dispatches submitted tasks in submission order, keeps at most
// MaxConcurrent of them running at once, and spaces consecutive dispatches by
// at least MinDispatchInterval. Each remote service gets its own instance.
package scheduler
