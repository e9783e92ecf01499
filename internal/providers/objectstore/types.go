// Package objectstore implements the on-disk, per-bucket key-value blob
// store: put/get/head/delete/list, presigned URLs, and notification
// dispatch for object mutations.
package objectstore

import "time"

// Object is one stored payload plus its metadata sidecar.
type Object struct {
	Bucket       string
	Key          string
	ContentType  string
	UserMetadata map[string]string
	ETag         string
	Size         int64
	LastModified time.Time
}

// PutResult is returned from Put.
type PutResult struct {
	ETag string
}

// GetResult carries an object's payload and metadata.
type GetResult struct {
	Bytes        []byte
	ContentType  string
	Size         int64
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

// ListItem is one entry returned from List.
type ListItem struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ListResult is the paginated output of List.
type ListResult struct {
	Items      []ListItem
	NextToken  string
	Truncated  bool
}
