// Package handlers provides the HTTP handlers of the worktime API: session
// actions, the snapshot stream and health.
package handlers
