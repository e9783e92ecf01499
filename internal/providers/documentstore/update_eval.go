package documentstore

import "fmt"

// ApplyUpdate applies expr to a clone of item and returns the result. All
// four clause kinds are applied in the fixed order SET -> REMOVE -> ADD ->
// DELETE against one in-memory snapshot, per spec §4.4.3, regardless of
// the order clauses appeared in the source text.
func ApplyUpdate(item Item, expr *UpdateExpr, ctx ExprContext) (Item, error) {
	out := item.Clone()
	working := ExprContext{Names: ctx.Names, Values: ctx.Values, Item: out}

	for _, set := range expr.Sets {
		path, err := working.resolvedPath(set.Path)
		if err != nil {
			return nil, err
		}
		val, err := evalValueExpr(set.Expr, working)
		if err != nil {
			return nil, err
		}
		SetPath(out, path, val)
	}
	for _, path := range expr.Removes {
		resolved, err := working.resolvedPath(path)
		if err != nil {
			return nil, err
		}
		RemovePath(out, resolved)
	}
	for _, add := range expr.Adds {
		if err := applyAdd(out, add, working); err != nil {
			return nil, err
		}
	}
	for _, del := range expr.Deletes {
		if err := applyDelete(out, del, working); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func evalValueExpr(ve ValueExpr, ctx ExprContext) (Value, error) {
	switch e := ve.(type) {
	case AtomExpr:
		v, present, err := evalOperand(e.Node, ctx)
		if err != nil {
			return Value{}, err
		}
		if !present {
			return NewNull(), nil
		}
		return v, nil
	case ArithExpr:
		lv, err := evalValueExpr(e.Left, ctx)
		if err != nil {
			return Value{}, err
		}
		rv, err := evalValueExpr(e.Right, ctx)
		if err != nil {
			return Value{}, err
		}
		lf, err := coerceNumeric(lv)
		if err != nil {
			return Value{}, err
		}
		rf, err := coerceNumeric(rv)
		if err != nil {
			return Value{}, err
		}
		var result float64
		if e.Op == '+' {
			result = lf + rf
		} else {
			result = lf - rf
		}
		return NewN(formatNumber(result)), nil
	case IfNotExistsExpr:
		resolved, err := ctx.resolvedPath(e.Path)
		if err != nil {
			return Value{}, err
		}
		if v, ok := GetPath(ctx.Item, resolved); ok {
			return v, nil
		}
		return evalValueExpr(e.Default, ctx)
	case ListAppendExpr:
		av, err := evalValueExpr(e.A, ctx)
		if err != nil {
			return Value{}, err
		}
		bv, err := evalValueExpr(e.B, ctx)
		if err != nil {
			return Value{}, err
		}
		return listAppend(av, bv), nil
	default:
		return Value{}, fmt.Errorf("expression: unknown value expression node")
	}
}

// coerceNumeric implements the arithmetic coercion rule of spec §4.4.3:
// numeric values parse directly; string-typed-as-numeric coerces too.
func coerceNumeric(v Value) (float64, error) {
	switch v.Kind {
	case KindN:
		return v.AsFloat()
	case KindS:
		if f, err := parseFloatStrict(v.S); err == nil {
			return f, nil
		}
		return 0, fmt.Errorf("expression: value %q is not numeric", v.S)
	default:
		return 0, fmt.Errorf("expression: arithmetic operand must be numeric, got %s", v.Kind)
	}
}

func formatNumber(f float64) string {
	// Render without a trailing ".0" for integral results, matching the
	// attribute-value wire convention of compact numeric strings.
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// listAppend implements spec §4.4.3: scalars wrap into single-element
// lists, nulls become empty lists, then the two lists concatenate.
func listAppend(a, b Value) Value {
	return Value{Kind: KindL, L: append(append([]Value{}, toList(a)...), toList(b)...)}
}

func toList(v Value) []Value {
	switch v.Kind {
	case KindL:
		return v.L
	case KindNULL:
		return nil
	default:
		return []Value{v}
	}
}

func applyAdd(item Item, add AddAction, ctx ExprContext) error {
	val, _, err := evalOperand(add.Value, ctx)
	if err != nil {
		return err
	}
	resolved, err := ctx.resolvedPath(add.Path)
	if err != nil {
		return err
	}
	current, present := GetPath(item, resolved)
	if !present {
		SetPath(item, resolved, val)
		return nil
	}
	switch {
	case current.Kind == KindN && val.Kind == KindN:
		cf, _ := current.AsFloat()
		vf, _ := val.AsFloat()
		SetPath(item, resolved, NewN(formatNumber(cf+vf)))
	case current.Kind == KindSS && val.Kind == KindSS:
		SetPath(item, resolved, NewStringSet(unionStrings(current.SS, val.SS)...))
	case current.Kind == KindNS && val.Kind == KindNS:
		SetPath(item, resolved, NewNumberSet(unionStrings(current.NS, val.NS)...))
	case current.Kind == KindBS && val.Kind == KindBS:
		SetPath(item, resolved, Value{Kind: KindBS, BS: unionBytes(current.BS, val.BS)})
	default:
		return fmt.Errorf("expression: ADD requires matching numeric or set types at %q", resolved)
	}
	return nil
}

func applyDelete(item Item, del DeleteAction, ctx ExprContext) error {
	val, _, err := evalOperand(del.Value, ctx)
	if err != nil {
		return err
	}
	resolved, err := ctx.resolvedPath(del.Path)
	if err != nil {
		return err
	}
	current, present := GetPath(item, resolved)
	if !present {
		return nil
	}
	switch {
	case current.Kind == KindSS && val.Kind == KindSS:
		SetPath(item, resolved, NewStringSet(differenceStrings(current.SS, val.SS)...))
	case current.Kind == KindNS && val.Kind == KindNS:
		SetPath(item, resolved, NewNumberSet(differenceStrings(current.NS, val.NS)...))
	case current.Kind == KindBS && val.Kind == KindBS:
		SetPath(item, resolved, Value{Kind: KindBS, BS: differenceBytes(current.BS, val.BS)})
	default:
		// missing or non-set: no-op, per spec.
	}
	return nil
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func differenceStrings(a, b []string) []string {
	remove := map[string]bool{}
	for _, s := range b {
		remove[s] = true
	}
	var out []string
	for _, s := range a {
		if !remove[s] {
			out = append(out, s)
		}
	}
	return out
}

func unionBytes(a, b [][]byte) [][]byte {
	seen := map[string]bool{}
	var out [][]byte
	for _, v := range append(append([][]byte{}, a...), b...) {
		k := string(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func differenceBytes(a, b [][]byte) [][]byte {
	remove := map[string]bool{}
	for _, v := range b {
		remove[string(v)] = true
	}
	var out [][]byte
	for _, v := range a {
		if !remove[string(v)] {
			out = append(out, v)
		}
	}
	return out
}
