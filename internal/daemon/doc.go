// Package daemon wires configuration, storage, the session engine and the
// HTTP API into one long-running process, and hot-applies config changes.
package daemon
