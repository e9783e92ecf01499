package documentstore

import (
	"fmt"
	"strings"
)

// ExprContext carries the caller-supplied name/value substitution maps and
// the item being evaluated against, per spec §4.4.2.
type ExprContext struct {
	Names  map[string]string // "#name" -> real attribute name
	Values map[string]Value  // ":val" -> typed value
	Item   Item
}

// resolvedPath substitutes every "#name" segment in path using ctx.Names.
func (ctx ExprContext) resolvedPath(path string) (string, error) {
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		// a segment may carry a trailing [n]; only the name part is
		// ever a #ref.
		name := seg
		suffix := ""
		if br := strings.IndexByte(seg, '['); br >= 0 {
			name, suffix = seg[:br], seg[br:]
		}
		if strings.HasPrefix(name, "#") {
			real, ok := ctx.Names[name]
			if !ok {
				return "", fmt.Errorf("expression: undefined name placeholder %q", name)
			}
			segs[i] = real + suffix
		}
	}
	return strings.Join(segs, "."), nil
}

// EvalFilter evaluates a parsed filter expression against ctx.Item.
// Evaluation is total per spec §8: it returns true/false and never an
// error for a well-typed query against any item (a malformed
// name/value-ref map is the one exception, surfaced as a validation
// error at the boundary).
func EvalFilter(node Node, ctx ExprContext) (bool, error) {
	switch n := node.(type) {
	case AndNode:
		l, err := EvalFilter(n.Left, ctx)
		if err != nil {
			return false, err
		}
		r, err := EvalFilter(n.Right, ctx)
		if err != nil {
			return false, err
		}
		return l && r, nil
	case OrNode:
		l, err := EvalFilter(n.Left, ctx)
		if err != nil {
			return false, err
		}
		r, err := EvalFilter(n.Right, ctx)
		if err != nil {
			return false, err
		}
		return l || r, nil
	case NotNode:
		v, err := EvalFilter(n.Operand, ctx)
		if err != nil {
			return false, err
		}
		return !v, nil
	case CompareNode:
		return evalCompare(n, ctx)
	case BetweenNode:
		return evalBetween(n, ctx)
	case InNode:
		return evalIn(n, ctx)
	case FunctionNode:
		return evalFunctionBool(n, ctx)
	default:
		// A bare operand used as a top-level predicate (not valid per
		// the grammar, but defensive): truthiness of a BOOL, else false.
		v, present, err := evalOperand(node, ctx)
		if err != nil {
			return false, err
		}
		if !present || v.Kind != KindBOOL {
			return false, nil
		}
		return v.Bool, nil
	}
}

// evalOperand resolves an operand node to a value. present=false means
// "missing attribute" (path/name-ref that doesn't resolve to anything in
// the item) — never an error.
func evalOperand(node Node, ctx ExprContext) (Value, bool, error) {
	switch n := node.(type) {
	case LiteralNode:
		return n.Value, true, nil
	case ValueRefNode:
		v, ok := ctx.Values[n.Name]
		if !ok {
			return Value{}, false, fmt.Errorf("expression: undefined value placeholder %q", n.Name)
		}
		return v, true, nil
	case PathNode:
		resolved, err := ctx.resolvedPath(n.Path)
		if err != nil {
			return Value{}, false, err
		}
		v, ok := GetPath(ctx.Item, resolved)
		return v, ok, nil
	case FunctionNode:
		if n.Name == "size" {
			if len(n.Args) != 1 {
				return Value{}, false, fmt.Errorf("expression: size() takes exactly one argument")
			}
			v, present, err := evalOperand(n.Args[0], ctx)
			if err != nil {
				return Value{}, false, err
			}
			if !present {
				return NewN("0"), true, nil
			}
			return NewN(fmt.Sprintf("%d", v.Size())), true, nil
		}
		return Value{}, false, fmt.Errorf("expression: %s() does not produce a value", n.Name)
	default:
		return Value{}, false, fmt.Errorf("expression: node is not a valid operand")
	}
}

func evalCompare(n CompareNode, ctx ExprContext) (bool, error) {
	lv, lp, err := evalOperand(n.Left, ctx)
	if err != nil {
		return false, err
	}
	rv, rp, err := evalOperand(n.Right, ctx)
	if err != nil {
		return false, err
	}
	if !lp || !rp {
		return false, nil
	}
	if lv.Kind == rv.Kind && lv.Kind != KindN && lv.Kind != KindS && (n.Op == "=" || n.Op == "<>") {
		return lv.Equal(rv) == (n.Op == "="), nil
	}
	cmp, ok := compareValues(lv, rv)
	if !ok {
		return false, nil
	}
	switch n.Op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("expression: unknown comparison operator %q", n.Op)
	}
}

// compareValues implements the mixed-type coercion rule of spec §4.4.2:
// numeric vs. its stringified form coerces to numeric; otherwise
// differing kinds never compare (ok=false).
func compareValues(l, r Value) (int, bool) {
	if l.Kind == r.Kind {
		switch l.Kind {
		case KindN:
			lf, err1 := l.AsFloat()
			rf, err2 := r.AsFloat()
			if err1 != nil || err2 != nil {
				return 0, false
			}
			return compareFloat(lf, rf), true
		case KindS:
			return strings.Compare(l.S, r.S), true
		case KindBOOL:
			if l.Bool == r.Bool {
				return 0, true
			}
			return 0, false // booleans are unordered; evalCompare answers = and <> with Equal
		default:
			if l.Equal(r) {
				return 0, true
			}
			return 0, false
		}
	}
	// one numeric, other its stringified form.
	if l.Kind == KindN && r.Kind == KindS {
		if rf, err := parseFloatStrict(r.S); err == nil {
			lf, _ := l.AsFloat()
			return compareFloat(lf, rf), true
		}
	}
	if l.Kind == KindS && r.Kind == KindN {
		if lf, err := parseFloatStrict(l.S); err == nil {
			rf, _ := r.AsFloat()
			return compareFloat(lf, rf), true
		}
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func parseFloatStrict(s string) (float64, error) {
	v := NewN(s)
	return v.AsFloat()
}

func evalBetween(n BetweenNode, ctx ExprContext) (bool, error) {
	v, present, err := evalOperand(n.Operand, ctx)
	if err != nil {
		return false, err
	}
	lo, loPresent, err := evalOperand(n.Low, ctx)
	if err != nil {
		return false, err
	}
	hi, hiPresent, err := evalOperand(n.High, ctx)
	if err != nil {
		return false, err
	}
	if !present || !loPresent || !hiPresent {
		return false, nil
	}
	cmpLo, ok := compareValues(v, lo)
	if !ok {
		return false, nil
	}
	cmpHi, ok := compareValues(v, hi)
	if !ok {
		return false, nil
	}
	return cmpLo >= 0 && cmpHi <= 0, nil
}

func evalIn(n InNode, ctx ExprContext) (bool, error) {
	v, present, err := evalOperand(n.Operand, ctx)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}
	for _, candidate := range n.Set {
		cv, cp, err := evalOperand(candidate, ctx)
		if err != nil {
			return false, err
		}
		if cp && v.Equal(cv) {
			return true, nil
		}
	}
	return false, nil
}

func evalFunctionBool(n FunctionNode, ctx ExprContext) (bool, error) {
	switch n.Name {
	case "attribute_exists":
		if len(n.Args) != 1 {
			return false, fmt.Errorf("expression: attribute_exists() takes exactly one argument")
		}
		_, present, err := evalOperand(n.Args[0], ctx)
		return present, err
	case "attribute_not_exists":
		if len(n.Args) != 1 {
			return false, fmt.Errorf("expression: attribute_not_exists() takes exactly one argument")
		}
		_, present, err := evalOperand(n.Args[0], ctx)
		return !present, err
	case "begins_with":
		if len(n.Args) != 2 {
			return false, fmt.Errorf("expression: begins_with() takes exactly two arguments")
		}
		lv, lp, err := evalOperand(n.Args[0], ctx)
		if err != nil {
			return false, err
		}
		rv, rp, err := evalOperand(n.Args[1], ctx)
		if err != nil {
			return false, err
		}
		if !lp || !rp || lv.Kind != KindS || rv.Kind != KindS {
			return false, nil
		}
		return strings.HasPrefix(lv.S, rv.S), nil
	case "contains":
		if len(n.Args) != 2 {
			return false, fmt.Errorf("expression: contains() takes exactly two arguments")
		}
		lv, lp, err := evalOperand(n.Args[0], ctx)
		if err != nil {
			return false, err
		}
		rv, rp, err := evalOperand(n.Args[1], ctx)
		if err != nil {
			return false, err
		}
		if !lp || !rp {
			return false, nil
		}
		return containsValue(lv, rv), nil
	case "size":
		// size() used directly as a boolean predicate is not valid
		// per the grammar (it's a value producer), but evaluate it
		// truthily as non-zero rather than erroring, mirroring the
		// "evaluation is total" invariant.
		v, present, err := evalOperand(n, ctx)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		f, _ := v.AsFloat()
		return f != 0, nil
	default:
		return false, fmt.Errorf("expression: unknown function %q", n.Name)
	}
}

func containsValue(container, needle Value) bool {
	switch container.Kind {
	case KindS:
		if needle.Kind != KindS {
			return false
		}
		return strings.Contains(container.S, needle.S)
	case KindL:
		for _, e := range container.L {
			if e.Equal(needle) {
				return true
			}
		}
		return false
	case KindSS:
		if needle.Kind != KindS {
			return false
		}
		for _, s := range container.SS {
			if s == needle.S {
				return true
			}
		}
		return false
	case KindNS:
		if needle.Kind != KindN {
			return false
		}
		for _, s := range container.NS {
			if NewN(s).Equal(needle) {
				return true
			}
		}
		return false
	case KindBS:
		if needle.Kind != KindB {
			return false
		}
		for _, b := range container.BS {
			if string(b) == string(needle.B) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
