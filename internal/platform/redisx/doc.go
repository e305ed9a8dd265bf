// Package redisx contains the Redis-backed implementations of the engine's
// external collaborators: the durable one-shot scheduler, the at-least-once
// notification queue, and the publish/subscribe notification channel. All
// state lives in Redis so schedules and queued messages survive process
// restarts.
package redisx
