// Package audit records administrative and security events to a local
// SQLite database: user registrations and status changes, store
// reloads, certificate renewals, and verbosity changes. Events are
// pruned on a cron schedule after the configured retention window.
package audit
