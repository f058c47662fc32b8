// Package types defines the TableStore and Persister interfaces, the
// snapshot and record model, the closed Value sum type, configuration,
// and the standard errors for the tablestore system.
package types
