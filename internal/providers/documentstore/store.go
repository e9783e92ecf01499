package documentstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"lwsgo/internal/apierrors"
	"lwsgo/pkg/logging"
)

// StreamSink receives change-stream records as base-table mutations
// happen. The documentstore package only emits records; §4.8's windowed
// batching and delivery live in the eventfabric package, which implements
// this interface.
type StreamSink interface {
	Emit(table string, record StreamRecord)
}

// StreamRecord is a single change-stream event (spec §3).
type StreamRecord struct {
	EventID            string
	EventName           string // INSERT | MODIFY | REMOVE
	Keys                Item
	NewImage            Item
	OldImage            Item
	SequenceNumber      uint64
	ApproxCreationTime  time.Time
}

// Store is the badger-backed, GSI-indexed document store engine (spec
// §4.4.1): one embedded database file per Store, one table namespace per
// Table registered with CreateTable.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex // guards tables + tableMus maps themselves
	tables map[string]Table
	tableMus map[string]*sync.Mutex
	sink   StreamSink
	seq    uint64
}

// Open opens (creating if necessary) the embedded database at path.
func Open(path string, sink StreamSink) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("documentstore: open %s: %w", path, err)
	}
	return &Store{
		db:       db,
		tables:   make(map[string]Table),
		tableMus: make(map[string]*sync.Mutex),
		sink:     sink,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateTable registers a table's key schema and GSIs. Idempotent
// re-registration with the same name replaces the schema (management
// calls are external to this package).
func (s *Store) CreateTable(t Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Name] = t
	s.tableMus[t.Name] = &sync.Mutex{}
}

func (s *Store) table(name string) (Table, *sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return Table{}, nil, apierrors.NewTableNotFoundError(name)
	}
	return t, s.tableMus[name], nil
}

// PutItem writes item's base row and all GSI entries in a single badger
// transaction (spec §4.4.1 invariant). Emits one INSERT or MODIFY stream
// record.
func (s *Store) PutItem(table string, item Item) error {
	t, mu, err := s.table(table)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()

	pk, sk, ok := compositeKey(item, t.KeySchema)
	if !ok {
		return apierrors.NewValidationError("ValidationException", "item is missing its composite key")
	}
	hasSort := t.KeySchema.Sort != ""
	key := itemKey(table, pk, sk, hasSort)

	var oldItem Item
	err = s.db.Update(func(txn *badger.Txn) error {
		if existing, err := txn.Get(key); err == nil {
			_ = existing.Value(func(b []byte) error {
				oldItem, _ = decodeItem(b)
				return nil
			})
			s.removeGSIEntries(txn, t, oldItem)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		encoded, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := txn.Set(key, encoded); err != nil {
			return err
		}
		return s.writeGSIEntries(txn, t, item, pk, sk, hasSort)
	})
	if err != nil {
		return apierrors.NewInternalError(fmt.Errorf("documentstore: put item: %w", err))
	}

	eventName := "INSERT"
	if oldItem != nil {
		eventName = "MODIFY"
	}
	s.emitStream(t, eventName, item, oldItem)
	return nil
}

func (s *Store) writeGSIEntries(txn *badger.Txn, t Table, item Item, basePk, baseSk Value, hasBaseSort bool) error {
	for _, g := range t.GSIs {
		gpk, gsk, ok := compositeKey(item, g.KeySchema)
		if !ok {
			continue // item doesn't participate in this GSI
		}
		hasGSISort := g.KeySchema.Sort != ""
		key := gsiKey(t.Name, g.Name, gpk, gsk, hasGSISort, basePk, baseSk, hasBaseSort)
		// The value is the base row's own storage key, so a GSI scan
		// can resolve straight to the base row without having to
		// reverse-parse the encoded key (attribute values may contain
		// the '#' separator, so the key text alone isn't reliably
		// splittable).
		baseKey := itemKey(t.Name, basePk, baseSk, hasBaseSort)
		if err := txn.Set(key, baseKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) removeGSIEntries(txn *badger.Txn, t Table, item Item) {
	if item == nil {
		return
	}
	pk, sk, ok := compositeKey(item, t.KeySchema)
	if !ok {
		return
	}
	hasBaseSort := t.KeySchema.Sort != ""
	for _, g := range t.GSIs {
		gpk, gsk, ok := compositeKey(item, g.KeySchema)
		if !ok {
			continue
		}
		hasGSISort := g.KeySchema.Sort != ""
		key := gsiKey(t.Name, g.Name, gpk, gsk, hasGSISort, pk, sk, hasBaseSort)
		_ = txn.Delete(key)
	}
}

// GetItem reads one item by composite key. ok=false means absent (not an
// error), per spec §4.4.1/§8 round-trip law.
func (s *Store) GetItem(table string, pk, sk Value) (Item, bool, error) {
	t, _, err := s.table(table)
	if err != nil {
		return nil, false, err
	}
	hasSort := t.KeySchema.Sort != ""
	key := itemKey(table, pk, sk, hasSort)

	var item Item
	found := false
	err = s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return entry.Value(func(b []byte) error {
			item, err = decodeItem(b)
			return err
		})
	})
	if err != nil {
		return nil, false, apierrors.NewInternalError(fmt.Errorf("documentstore: get item: %w", err))
	}
	return item, found, nil
}

// DeleteItem removes a base row and its GSI entries. existed reports
// whether anything was actually removed.
func (s *Store) DeleteItem(table string, pk, sk Value) (existed bool, err error) {
	t, mu, err := s.table(table)
	if err != nil {
		return false, err
	}
	mu.Lock()
	defer mu.Unlock()

	hasSort := t.KeySchema.Sort != ""
	key := itemKey(table, pk, sk, hasSort)

	var oldItem Item
	err = s.db.Update(func(txn *badger.Txn) error {
		entry, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		if verr := entry.Value(func(b []byte) error {
			oldItem, err = decodeItem(b)
			return err
		}); verr != nil {
			return verr
		}
		s.removeGSIEntries(txn, t, oldItem)
		return txn.Delete(key)
	})
	if err != nil {
		return false, apierrors.NewInternalError(fmt.Errorf("documentstore: delete item: %w", err))
	}
	if existed {
		s.emitStream(t, "REMOVE", nil, oldItem)
	}
	return existed, nil
}

func (s *Store) emitStream(t Table, eventName string, newImage, oldImage Item) {
	if s.sink == nil || !t.Stream.Enabled {
		return
	}
	s.seq++
	keys := Item{}
	for _, attr := range t.Stream.KeyAttrs {
		img := newImage
		if img == nil {
			img = oldImage
		}
		if v, ok := img[attr]; ok {
			keys[attr] = v
		}
	}
	record := StreamRecord{
		EventID:            fmt.Sprintf("%s-%d", t.Name, s.seq),
		EventName:          eventName,
		Keys:               keys,
		SequenceNumber:     s.seq,
		ApproxCreationTime: time.Now(),
	}
	switch t.Stream.View {
	case StreamViewNewImage:
		record.NewImage = newImage
	case StreamViewOldImage:
		record.OldImage = oldImage
	case StreamViewNewAndOld:
		record.NewImage = newImage
		record.OldImage = oldImage
	case StreamViewKeysOnly:
		// keys only, already populated above.
	}
	logging.Debug("documentstore", "emitting %s stream record for table %s seq=%d", eventName, t.Name, s.seq)
	s.sink.Emit(t.Name, record)
}

func decodeItem(b []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, err
	}
	return item, nil
}
