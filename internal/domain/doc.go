// Package domain contains the core entities of the lifecycle engine: tasks
// with their deadline-driven status state machine, and the identity records
// mirrored from the external provider. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
