package documentstore

import "fmt"

// KeyCondition is the validated, narrowed shape of a key-condition
// expression (spec §4.4.2): exactly one equality on the partition key and
// at most one comparison on the sort key.
type KeyCondition struct {
	PartitionAttr  string
	PartitionValue Value

	SortAttr  string   // "" if the condition does not constrain the sort key
	SortOp    string   // one of = < > <= >= BETWEEN begins_with
	SortValue Value    // used for all ops except BETWEEN
	SortLow   Value    // BETWEEN low bound
	SortHigh  Value    // BETWEEN high bound
}

// ParseKeyCondition parses and validates src as a key-condition expression
// against the table's key schema, returning the narrowed scan bounds the
// storage layer uses to drive an index scan.
func ParseKeyCondition(src string, ctx ExprContext, partitionAttr, sortAttr string) (*KeyCondition, error) {
	node, err := ParseFilterExpression(src)
	if err != nil {
		return nil, err
	}

	var clauses []Node
	flatten := func(n Node) {}
	flatten = func(n Node) {
		if and, ok := n.(AndNode); ok {
			flatten(and.Left)
			flatten(and.Right)
			return
		}
		clauses = append(clauses, n)
	}
	flatten(node)

	kc := &KeyCondition{}
	for _, c := range clauses {
		switch n := c.(type) {
		case CompareNode:
			attr, err := attrNameOf(n.Left, ctx)
			if err != nil {
				return nil, err
			}
			val, _, err := evalOperand(n.Right, ctx)
			if err != nil {
				return nil, err
			}
			switch attr {
			case partitionAttr:
				if n.Op != "=" {
					return nil, fmt.Errorf("expression: partition key condition must be an equality")
				}
				kc.PartitionAttr = attr
				kc.PartitionValue = val
			case sortAttr:
				if kc.SortAttr != "" {
					return nil, fmt.Errorf("expression: at most one condition is allowed on the sort key")
				}
				kc.SortAttr = attr
				kc.SortOp = n.Op
				kc.SortValue = val
			default:
				return nil, fmt.Errorf("expression: key condition references non-key attribute %q", attr)
			}
		case BetweenNode:
			attr, err := attrNameOf(n.Operand, ctx)
			if err != nil {
				return nil, err
			}
			if attr != sortAttr {
				return nil, fmt.Errorf("expression: BETWEEN is only valid on the sort key")
			}
			lo, _, err := evalOperand(n.Low, ctx)
			if err != nil {
				return nil, err
			}
			hi, _, err := evalOperand(n.High, ctx)
			if err != nil {
				return nil, err
			}
			if kc.SortAttr != "" {
				return nil, fmt.Errorf("expression: at most one condition is allowed on the sort key")
			}
			kc.SortAttr = attr
			kc.SortOp = "BETWEEN"
			kc.SortLow = lo
			kc.SortHigh = hi
		case FunctionNode:
			if n.Name != "begins_with" {
				return nil, fmt.Errorf("expression: %s() is not valid in a key condition", n.Name)
			}
			attr, err := attrNameOf(n.Args[0], ctx)
			if err != nil {
				return nil, err
			}
			if attr != sortAttr {
				return nil, fmt.Errorf("expression: begins_with is only valid on the sort key")
			}
			val, _, err := evalOperand(n.Args[1], ctx)
			if err != nil {
				return nil, err
			}
			if kc.SortAttr != "" {
				return nil, fmt.Errorf("expression: at most one condition is allowed on the sort key")
			}
			kc.SortAttr = attr
			kc.SortOp = "begins_with"
			kc.SortValue = val
		default:
			return nil, fmt.Errorf("expression: unsupported key condition clause")
		}
	}

	if kc.PartitionAttr == "" {
		return nil, fmt.Errorf("expression: key condition must include an equality on the partition key %q", partitionAttr)
	}
	return kc, nil
}

func attrNameOf(n Node, ctx ExprContext) (string, error) {
	p, ok := n.(PathNode)
	if !ok {
		return "", fmt.Errorf("expression: key condition operand must be an attribute path")
	}
	return ctx.resolvedPath(p.Path)
}

// MatchesSortKey reports whether item satisfies the sort-key portion of the
// condition (the partition-key portion is already guaranteed by which
// index range the storage layer scanned).
func (kc *KeyCondition) MatchesSortKey(item Item) bool {
	if kc.SortAttr == "" {
		return true
	}
	v, ok := GetPath(item, kc.SortAttr)
	if !ok {
		return false
	}
	switch kc.SortOp {
	case "BETWEEN":
		lo, okLo := compareValues(v, kc.SortLow)
		hi, okHi := compareValues(v, kc.SortHigh)
		return okLo && okHi && lo >= 0 && hi <= 0
	case "begins_with":
		return v.Kind == KindS && kc.SortValue.Kind == KindS && hasPrefix(v.S, kc.SortValue.S)
	default:
		cmp, ok := compareValues(v, kc.SortValue)
		if !ok {
			return false
		}
		switch kc.SortOp {
		case "=":
			return cmp == 0
		case "<":
			return cmp < 0
		case ">":
			return cmp > 0
		case "<=":
			return cmp <= 0
		case ">=":
			return cmp >= 0
		}
		return false
	}
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}
