package documentstore

import (
	badger "github.com/dgraph-io/badger/v4"

	"lwsgo/internal/apierrors"
)

// Query drives an index scan bounded by kc and then applies filterExpr (if
// any) to the rows in range, per spec §4.4.2: "the key-condition evaluator
// drives index scan bounds; the filter expression, if any, is applied
// after the scan." indexName == "" queries the primary index.
func (s *Store) Query(table, indexName string, kc *KeyCondition, filter Node, ctx ExprContext) ([]Item, error) {
	t, _, err := s.table(table)
	if err != nil {
		return nil, err
	}

	var items []Item
	if indexName == "" {
		items, err = s.scanPrimaryByPartition(table, t, kc)
	} else {
		g, ok := t.gsiByName(indexName)
		if !ok {
			return nil, apierrors.NewResourceNotFoundError("dynamodb", indexName)
		}
		items, err = s.scanGSIByPartition(table, t, g, kc)
	}
	if err != nil {
		return nil, err
	}

	var out []Item
	for _, item := range items {
		if kc.SortAttr != "" && !kc.MatchesSortKey(item) {
			continue
		}
		if filter != nil {
			itemCtx := ctx
			itemCtx.Item = item
			ok, err := EvalFilter(filter, itemCtx)
			if err != nil {
				return nil, apierrors.NewValidationError("ValidationException", err.Error())
			}
			if !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) scanPrimaryByPartition(table string, t Table, kc *KeyCondition) ([]Item, error) {
	prefix := itemKeyPrefix(table, kc.PartitionValue)
	var items []Item
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(b []byte) error {
				item, err := decodeItem(b)
				if err != nil {
					return err
				}
				items = append(items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierrors.NewInternalError(err)
	}
	return items, nil
}

// scanGSIByPartition walks a GSI's key range, resolving each entry's
// pointer back to the base row (spec §4.4.1: GSI entries carry a pointer
// back to the base composite key, not the full item).
func (s *Store) scanGSIByPartition(table string, t Table, g GSI, kc *KeyCondition) ([]Item, error) {
	prefix := gsiKeyPrefix(table, g.Name, kc.PartitionValue)
	var baseKeys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(b []byte) error {
				baseKeys = append(baseKeys, append([]byte(nil), b...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierrors.NewInternalError(err)
	}

	var items []Item
	for _, baseKey := range baseKeys {
		item, found, err := s.getItemRaw(baseKey)
		if err != nil {
			return nil, err
		}
		if found {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Store) getItemRaw(key []byte) (Item, bool, error) {
	var item Item
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
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
		return nil, false, apierrors.NewInternalError(err)
	}
	return item, found, nil
}
