// Package events defines task mutation stream records and the emitter that
// fans them out to registered handlers. Records mirror the change-capture
// shape of the upstream datastore: an event name plus flattened old and new
// task images with string-typed attribute values.
package events
