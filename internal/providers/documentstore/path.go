package documentstore

import "strings"

// PathSegment is one step of a dotted attribute path: either a map key or
// a list index (exactly one of Key/Index is meaningful, per IsIndex).
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

// ParsePath splits a dotted path like "a.b[0].c" into segments.
func ParsePath(path string) []PathSegment {
	var segs []PathSegment
	for _, part := range strings.Split(path, ".") {
		name, idx, hasIdx := splitIndex(part)
		if name != "" {
			segs = append(segs, PathSegment{Key: name})
		}
		if hasIdx {
			segs = append(segs, PathSegment{Index: idx, IsIndex: true})
		}
	}
	return segs
}

// splitIndex splits "arr[3]" into ("arr", 3, true); a bare name returns
// (name, 0, false).
func splitIndex(part string) (string, int, bool) {
	open := strings.IndexByte(part, '[')
	if open < 0 || !strings.HasSuffix(part, "]") {
		return part, 0, false
	}
	name := part[:open]
	numStr := part[open+1 : len(part)-1]
	idx := 0
	for _, c := range numStr {
		if c < '0' || c > '9' {
			return part, 0, false
		}
		idx = idx*10 + int(c-'0')
	}
	return name, idx, true
}

// GetPath resolves a dotted path against an item, returning the value and
// whether it was present. Missing along the way is simply "not present",
// never an error (spec §4.4.2: comparison on a missing attribute is false,
// never an error).
func GetPath(item Item, path string) (Value, bool) {
	segs := ParsePath(path)
	if len(segs) == 0 {
		return Value{}, false
	}
	first := segs[0]
	if first.IsIndex {
		return Value{}, false
	}
	v, ok := item[first.Key]
	if !ok {
		return Value{}, false
	}
	return getPathValue(v, segs[1:])
}

func getPathValue(v Value, rest []PathSegment) (Value, bool) {
	if len(rest) == 0 {
		return v, true
	}
	seg := rest[0]
	if seg.IsIndex {
		if v.Kind != KindL || seg.Index < 0 || seg.Index >= len(v.L) {
			return Value{}, false
		}
		return getPathValue(v.L[seg.Index], rest[1:])
	}
	if v.Kind != KindM {
		return Value{}, false
	}
	next, ok := v.M[seg.Key]
	if !ok {
		return Value{}, false
	}
	return getPathValue(next, rest[1:])
}

// SetPath writes value at the dotted path, creating missing intermediate
// maps as it goes (spec §4.4.3 SET semantics). Intermediate list indices
// that don't exist are not created (lists are not auto-extended); such a
// SET is a no-op returning false.
func SetPath(item Item, path string, value Value) bool {
	segs := ParsePath(path)
	if len(segs) == 0 || segs[0].IsIndex {
		return false
	}
	if len(segs) == 1 {
		item[segs[0].Key] = value
		return true
	}
	cur, ok := item[segs[0].Key]
	if !ok || (cur.Kind != KindM && cur.Kind != KindL) {
		cur = Value{Kind: KindM, M: map[string]Value{}}
	} else {
		cur = cur.Clone()
	}
	if !setPathValue(&cur, segs[1:], value) {
		return false
	}
	item[segs[0].Key] = cur
	return true
}

func setPathValue(v *Value, rest []PathSegment, value Value) bool {
	seg := rest[0]
	if seg.IsIndex {
		if v.Kind != KindL || seg.Index < 0 || seg.Index >= len(v.L) {
			return false
		}
		if len(rest) == 1 {
			v.L[seg.Index] = value
			return true
		}
		child := v.L[seg.Index]
		if !setPathValue(&child, rest[1:], value) {
			return false
		}
		v.L[seg.Index] = child
		return true
	}
	if v.Kind != KindM {
		*v = Value{Kind: KindM, M: map[string]Value{}}
	}
	if v.M == nil {
		v.M = map[string]Value{}
	}
	if len(rest) == 1 {
		v.M[seg.Key] = value
		return true
	}
	child, ok := v.M[seg.Key]
	if !ok || child.Kind != KindM {
		child = Value{Kind: KindM, M: map[string]Value{}}
	}
	if !setPathValue(&child, rest[1:], value) {
		return false
	}
	v.M[seg.Key] = child
	return true
}

// RemovePath deletes the leaf named by path. Missing is a no-op (spec
// §4.4.3 REMOVE semantics).
func RemovePath(item Item, path string) {
	segs := ParsePath(path)
	if len(segs) == 0 || segs[0].IsIndex {
		return
	}
	if len(segs) == 1 {
		delete(item, segs[0].Key)
		return
	}
	cur, ok := item[segs[0].Key]
	if !ok {
		return
	}
	cur = cur.Clone()
	removePathValue(&cur, segs[1:])
	item[segs[0].Key] = cur
}

func removePathValue(v *Value, rest []PathSegment) {
	seg := rest[0]
	if len(rest) == 1 {
		if seg.IsIndex {
			if v.Kind == KindL && seg.Index >= 0 && seg.Index < len(v.L) {
				v.L = append(v.L[:seg.Index], v.L[seg.Index+1:]...)
			}
			return
		}
		if v.Kind == KindM {
			delete(v.M, seg.Key)
		}
		return
	}
	if seg.IsIndex {
		if v.Kind != KindL || seg.Index < 0 || seg.Index >= len(v.L) {
			return
		}
		child := v.L[seg.Index]
		removePathValue(&child, rest[1:])
		v.L[seg.Index] = child
		return
	}
	if v.Kind != KindM {
		return
	}
	child, ok := v.M[seg.Key]
	if !ok {
		return
	}
	removePathValue(&child, rest[1:])
	v.M[seg.Key] = child
}
