// Package api provides HTTP handlers for the API: the task lifecycle
// endpoints used by clients and the internal trigger endpoints used by
// operators and scheduled infrastructure.
package api
