package documentstore

import (
	badger "github.com/dgraph-io/badger/v4"

	"lwsgo/internal/apierrors"
)

// Scan walks every row of a table's primary index and applies filter (if
// any). Unlike Query, it has no key-condition bound.
func (s *Store) Scan(table string, filter Node, ctx ExprContext) ([]Item, error) {
	if _, _, err := s.table(table); err != nil {
		return nil, err
	}
	prefix := tableScanPrefix(table)
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

	if filter == nil {
		return items, nil
	}
	var out []Item
	for _, item := range items {
		itemCtx := ctx
		itemCtx.Item = item
		ok, err := EvalFilter(filter, itemCtx)
		if err != nil {
			return nil, apierrors.NewValidationError("ValidationException", err.Error())
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}
