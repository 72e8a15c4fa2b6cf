// Package types defines the Property entity, the persisted Record shape, the
// Backend and ObjectStorage interfaces, view criteria, and the standard error
// types for the property synchronization layer.
package types
