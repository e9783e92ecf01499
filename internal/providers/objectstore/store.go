package objectstore

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lwsgo/internal/apierrors"
	"lwsgo/pkg/logging"
)

// Notifier dispatches an object-mutation notification; implemented by
// *eventfabric.NotificationDispatcher.
type Notifier interface {
	Dispatch(bucket, event, key string)
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(bucket, event, key string) {}

// metaSidecar is the on-disk JSON shape of an object's metadata sidecar.
type metaSidecar struct {
	ContentType  string            `json:"content_type"`
	UserMetadata map[string]string `json:"user_metadata"`
	ETag         string            `json:"etag"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the on-disk, per-bucket blob store (spec §4.3/§6). Payloads
// live at <dataDir>/<bucket>/<key-escaped-to-path>; metadata sidecars at
// <dataDir>/.metadata/<bucket>/<key>.json.
type Store struct {
	dataDir  string
	notifier Notifier

	mu        sync.Mutex // guards bucketMus map itself
	bucketMus map[string]*sync.Mutex
}

// New opens an object store rooted at dataDir (created if absent). A nil
// notifier disables notification dispatch.
func New(dataDir string, notifier Notifier) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create data dir: %w", err)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Store{dataDir: dataDir, notifier: notifier, bucketMus: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) bucketMu(bucket string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.bucketMus[bucket]
	if !ok {
		m = &sync.Mutex{}
		s.bucketMus[bucket] = m
	}
	return m
}

func (s *Store) payloadPath(bucket, key string) string {
	return filepath.Join(s.dataDir, bucket, escapeKeyToPath(key))
}

func (s *Store) sidecarPath(bucket, key string) string {
	return filepath.Join(s.dataDir, ".metadata", bucket, escapeKeyToPath(key)+".json")
}

// escapeKeyToPath maps an object key onto a safe relative filesystem path:
// '/' stays a directory separator (natural for S3-style prefixes), but any
// ".." path-traversal segment is escaped so a crafted key can never escape
// the bucket directory.
func escapeKeyToPath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		if p == "" || p == "." || p == ".." {
			parts[i] = "_" + p
		}
	}
	return filepath.Join(parts...)
}

// Put writes a payload and its metadata sidecar, overwriting any existing
// object, and emits one ObjectCreated:Put notification.
func (s *Store) Put(bucket, key string, data []byte, contentType string, userMetadata map[string]string) (PutResult, error) {
	mu := s.bucketMu(bucket)
	mu.Lock()
	defer mu.Unlock()

	sum := md5.Sum(data)
	etag := hex.EncodeToString(sum[:])

	payloadPath := s.payloadPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(payloadPath), 0o755); err != nil {
		return PutResult{}, apierrors.NewInternalError(err)
	}
	if err := os.WriteFile(payloadPath, data, 0o644); err != nil {
		return PutResult{}, apierrors.NewInternalError(err)
	}

	meta := metaSidecar{
		ContentType:  contentType,
		UserMetadata: userMetadata,
		ETag:         etag,
		Size:         int64(len(data)),
		LastModified: time.Now().UTC(),
	}
	if err := s.writeSidecar(bucket, key, meta); err != nil {
		return PutResult{}, err
	}

	s.notifier.Dispatch(bucket, "ObjectCreated:Put", key)
	logging.Debug("objectstore", "put %s/%s (%d bytes, etag=%s)", bucket, key, len(data), etag)
	return PutResult{ETag: etag}, nil
}

func (s *Store) writeSidecar(bucket, key string, meta metaSidecar) error {
	sidecarPath := s.sidecarPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(sidecarPath), 0o755); err != nil {
		return apierrors.NewInternalError(err)
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return apierrors.NewInternalError(err)
	}
	if err := os.WriteFile(sidecarPath, b, 0o644); err != nil {
		return apierrors.NewInternalError(err)
	}
	return nil
}

func (s *Store) readSidecar(bucket, key string) (metaSidecar, bool, error) {
	b, err := os.ReadFile(s.sidecarPath(bucket, key))
	if os.IsNotExist(err) {
		return metaSidecar{}, false, nil
	}
	if err != nil {
		return metaSidecar{}, false, apierrors.NewInternalError(err)
	}
	var meta metaSidecar
	if err := json.Unmarshal(b, &meta); err != nil {
		return metaSidecar{}, false, apierrors.NewInternalError(err)
	}
	return meta, true, nil
}

// Get returns an object's payload and metadata, or found=false if absent.
func (s *Store) Get(bucket, key string) (GetResult, bool, error) {
	meta, found, err := s.readSidecar(bucket, key)
	if err != nil || !found {
		return GetResult{}, found, err
	}
	data, err := os.ReadFile(s.payloadPath(bucket, key))
	if os.IsNotExist(err) {
		return GetResult{}, false, nil
	}
	if err != nil {
		return GetResult{}, false, apierrors.NewInternalError(err)
	}
	return GetResult{
		Bytes:        data,
		ContentType:  meta.ContentType,
		Size:         meta.Size,
		ETag:         meta.ETag,
		Metadata:     meta.UserMetadata,
		LastModified: meta.LastModified,
	}, true, nil
}

// Head returns an object's metadata without its payload.
func (s *Store) Head(bucket, key string) (GetResult, bool, error) {
	meta, found, err := s.readSidecar(bucket, key)
	if err != nil || !found {
		return GetResult{}, found, err
	}
	return GetResult{
		ContentType:  meta.ContentType,
		Size:         meta.Size,
		ETag:         meta.ETag,
		Metadata:     meta.UserMetadata,
		LastModified: meta.LastModified,
	}, true, nil
}

// Delete removes an object's payload and sidecar. existed reports whether
// anything was actually removed; an ObjectRemoved:Delete notification
// fires only if it existed.
func (s *Store) Delete(bucket, key string) (existed bool, err error) {
	mu := s.bucketMu(bucket)
	mu.Lock()
	defer mu.Unlock()

	_, found, err := s.readSidecar(bucket, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := os.Remove(s.payloadPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return false, apierrors.NewInternalError(err)
	}
	if err := os.Remove(s.sidecarPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return false, apierrors.NewInternalError(err)
	}
	s.notifier.Dispatch(bucket, "ObjectRemoved:Delete", key)
	return true, nil
}

// List returns objects under bucket matching prefix, sorted by key,
// paginated by an opaque continuation token (the last key of the
// previous page).
func (s *Store) List(bucket, prefix string, maxKeys int, continuationToken string) (ListResult, error) {
	metaDir := filepath.Join(s.dataDir, ".metadata", bucket)
	var keys []string
	err := filepath.WalkDir(metaDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(metaDir, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return ListResult{}, apierrors.NewInternalError(err)
	}
	sort.Strings(keys)

	start := 0
	if continuationToken != "" {
		idx := sort.SearchStrings(keys, continuationToken)
		if idx < len(keys) && keys[idx] == continuationToken {
			idx++
		}
		start = idx
	}
	if start > len(keys) {
		start = len(keys)
	}

	if maxKeys <= 0 {
		maxKeys = 1000
	}
	end := start + maxKeys
	truncated := end < len(keys)
	if end > len(keys) {
		end = len(keys)
	}

	var items []ListItem
	for _, key := range keys[start:end] {
		meta, found, err := s.readSidecar(bucket, key)
		if err != nil {
			return ListResult{}, err
		}
		if !found {
			continue
		}
		items = append(items, ListItem{Key: key, Size: meta.Size, ETag: meta.ETag, LastModified: meta.LastModified})
	}

	result := ListResult{Items: items, Truncated: truncated}
	if truncated {
		result.NextToken = keys[end-1]
	}
	return result, nil
}
