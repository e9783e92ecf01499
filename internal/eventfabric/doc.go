// Package eventfabric implements the two detached dispatchers shared
// across providers: the object-store notification dispatcher and the
// document-store change-stream dispatcher. Both accept events, optionally
// filter them, and invoke zero or more handlers off the producer's call
// path.
package eventfabric
