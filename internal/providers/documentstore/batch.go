package documentstore

import (
	"fmt"

	"lwsgo/internal/apierrors"
)

// ItemKey names one item to fetch/act on.
type ItemKey struct {
	Table string
	PK    Value
	SK    Value
}

// BatchGetResult pairs a key with the item found for it; misses are
// simply absent from the slice (spec §4.4.4: "no error on misses").
type BatchGetResult struct {
	Key  ItemKey
	Item Item
}

// BatchGet performs N key lookups, returning only those that exist.
func (s *Store) BatchGet(keys []ItemKey) ([]BatchGetResult, error) {
	var out []BatchGetResult
	for _, k := range keys {
		item, found, err := s.GetItem(k.Table, k.PK, k.SK)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, BatchGetResult{Key: k, Item: item})
		}
	}
	return out, nil
}

// WriteOp is one element of a BatchWrite call: exactly one of Put or
// Delete is set.
type WriteOp struct {
	Table  string
	Put    Item     // non-nil for a put
	Delete *ItemKey // non-nil for a delete
}

// BatchWrite applies a mix of puts and deletes sequentially; there is no
// atomicity across items (spec §4.4.4).
func (s *Store) BatchWrite(ops []WriteOp) error {
	for i, op := range ops {
		if op.Put != nil {
			if err := s.PutItem(op.Table, op.Put); err != nil {
				return fmt.Errorf("documentstore: batch write item %d: %w", i, err)
			}
			continue
		}
		if op.Delete != nil {
			if _, err := s.DeleteItem(op.Delete.Table, op.Delete.PK, op.Delete.SK); err != nil {
				return fmt.Errorf("documentstore: batch write item %d: %w", i, err)
			}
			continue
		}
		return apierrors.NewValidationError("ValidationException", fmt.Sprintf("batch write item %d has neither Put nor Delete", i))
	}
	return nil
}

// TransactGet performs N reads that all succeed, or the whole call fails.
func (s *Store) TransactGet(keys []ItemKey) ([]Item, error) {
	items := make([]Item, len(keys))
	for i, k := range keys {
		item, found, err := s.GetItem(k.Table, k.PK, k.SK)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apierrors.NewDependentFailureError(
				"TransactionCanceledException",
				fmt.Sprintf("item %d not found", i),
				apierrors.NewNotFoundError(k.Table, "item", fmt.Sprintf("%v/%v", k.PK, k.SK), "ResourceNotFoundException"),
			)
		}
		items[i] = item
	}
	return items, nil
}

// TransactItem is one element of a TransactWrite call.
type TransactItem struct {
	Table          string
	Put            Item
	Update         *TransactUpdate
	Delete         *ItemKey
	ConditionCheck *TransactCondition
	// Condition, if non-nil, must hold for Put/Update/Delete too (a
	// conditional put/update/delete), evaluated in the same pre-commit
	// pass as standalone ConditionCheck items.
	Condition *TransactCondition
}

type TransactUpdate struct {
	Key  ItemKey
	Expr *UpdateExpr
	Ctx  ExprContext
}

type TransactCondition struct {
	Key  ItemKey
	Expr Node
	Ctx  ExprContext
}

// CancellationReason describes why one item of a cancelled transaction
// failed, per spec §4.4.4 "structured error carrying per-item reasons".
type CancellationReason struct {
	Index   int
	Code    string
	Message string
}

// TransactWriteCancelledError is returned when any condition fails.
type TransactWriteCancelledError struct {
	Reasons []CancellationReason
}

func (e *TransactWriteCancelledError) Error() string {
	return fmt.Sprintf("documentstore: transaction cancelled (%d reasons)", len(e.Reasons))
}

// TransactWrite evaluates every condition first against a snapshot; if any
// fails, the whole transaction is cancelled with per-item reasons and no
// writes are applied; otherwise every write commits (sequentially, since
// each PutItem/DeleteItem is itself atomic at the storage layer and no
// other writer observes an intermediate state thanks to each table's
// per-table mutex).
func (s *Store) TransactWrite(items []TransactItem) error {
	var reasons []CancellationReason
	for i, it := range items {
		cond := it.ConditionCheck
		if cond == nil {
			cond = it.Condition
		}
		if cond == nil {
			continue
		}
		item, found, err := s.GetItem(cond.Key.Table, cond.Key.PK, cond.Key.SK)
		if err != nil {
			return err
		}
		if !found {
			reasons = append(reasons, CancellationReason{Index: i, Code: "ConditionalCheckFailed", Message: "item not found"})
			continue
		}
		itemCtx := cond.Ctx
		itemCtx.Item = item
		ok, err := EvalFilter(cond.Expr, itemCtx)
		if err != nil {
			return apierrors.NewValidationError("ValidationException", err.Error())
		}
		if !ok {
			reasons = append(reasons, CancellationReason{Index: i, Code: "ConditionalCheckFailed", Message: "condition expression was not satisfied"})
		}
	}
	if len(reasons) > 0 {
		return &TransactWriteCancelledError{Reasons: reasons}
	}

	for _, it := range items {
		switch {
		case it.Put != nil:
			if err := s.PutItem(it.Table, it.Put); err != nil {
				return err
			}
		case it.Update != nil:
			current, _, err := s.GetItem(it.Update.Key.Table, it.Update.Key.PK, it.Update.Key.SK)
			if err != nil {
				return err
			}
			if current == nil {
				current = Item{}
			}
			updated, err := ApplyUpdate(current, it.Update.Expr, it.Update.Ctx)
			if err != nil {
				return apierrors.NewValidationError("ValidationException", err.Error())
			}
			if err := s.PutItem(it.Update.Key.Table, updated); err != nil {
				return err
			}
		case it.Delete != nil:
			if _, err := s.DeleteItem(it.Delete.Table, it.Delete.PK, it.Delete.SK); err != nil {
				return err
			}
		}
	}
	return nil
}
