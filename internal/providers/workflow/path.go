package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"lwsgo/internal/apierrors"
)

// pathSyntax restricts paths to the subset the interpreter supports: "$",
// "$.key", "$.key.nested", "$.arr[0]". No wildcards, filters, or slices
// (spec §4.5.2).
var pathSyntax = regexp.MustCompile(`^\$(\.[A-Za-z_][A-Za-z0-9_]*(\[[0-9]+\])?)*$`)

// ValidatePath reports whether path conforms to the supported subset.
func ValidatePath(path string) error {
	if !pathSyntax.MatchString(path) {
		return apierrors.NewValidationError("InvalidPath", fmt.Sprintf("unsupported path syntax: %q", path))
	}
	return nil
}

// Get resolves path against data, restricted to the supported subset.
func Get(path string, data any) (any, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if path == "$" {
		return data, nil
	}
	v, err := jsonpath.Get(path, data)
	if err != nil {
		return nil, apierrors.NewValidationError("PathNotFound", fmt.Sprintf("path %q: %v", path, err))
	}
	return v, nil
}

// ApplyInputPath selects the subset of input that is passed to the
// state's work (spec §4.5.2). A nil path means the field was absent,
// defaulting to "$" (pass input through unchanged); a pointer to "" means
// the field was explicit JSON null, which selects an empty map.
func ApplyInputPath(path *string, input any) (any, error) {
	if path == nil {
		return input, nil
	}
	if *path == "" {
		return map[string]any{}, nil
	}
	return Get(*path, input)
}

// ApplyOutputPath selects the subset of the state's effective result that
// becomes the state's output, with the same absent/null convention as
// ApplyInputPath.
func ApplyOutputPath(path *string, result any) (any, error) {
	if path == nil {
		return result, nil
	}
	if *path == "" {
		return map[string]any{}, nil
	}
	return Get(*path, result)
}

// ApplyResultPath places result into a copy of input at path, producing
// the state's effective result (spec §4.5.2). A nil path means the field
// was absent, defaulting to "$" (result replaces input entirely); a
// pointer to "" means explicit JSON null, which discards result and
// passes input through unchanged.
func ApplyResultPath(path *string, input, result any) (any, error) {
	if path == nil {
		return result, nil
	}
	p := *path
	if p == "" {
		return input, nil
	}
	if p == "$" {
		return result, nil
	}
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	segments, err := splitSegments(p)
	if err != nil {
		return nil, err
	}
	clone, err := deepCopy(input)
	if err != nil {
		return nil, err
	}
	if err := setAtPath(clone, segments, result); err != nil {
		return nil, err
	}
	return clone, nil
}

// segment is one step of a parsed path: either a map key or an array
// index (Index >= 0).
type segment struct {
	Key   string
	Index int
}

func splitSegments(path string) ([]segment, error) {
	rest := strings.TrimPrefix(path, "$")
	var segs []segment
	for len(rest) > 0 {
		if rest[0] != '.' {
			return nil, apierrors.NewValidationError("InvalidPath", fmt.Sprintf("malformed path %q", path))
		}
		rest = rest[1:]
		end := strings.IndexAny(rest, ".[")
		var key string
		if end == -1 {
			key, rest = rest, ""
		} else {
			key, rest = rest[:end], rest[end:]
		}
		segs = append(segs, segment{Key: key})
		for strings.HasPrefix(rest, "[") {
			closeIdx := strings.Index(rest, "]")
			if closeIdx == -1 {
				return nil, apierrors.NewValidationError("InvalidPath", fmt.Sprintf("malformed path %q", path))
			}
			idx, err := strconv.Atoi(rest[1:closeIdx])
			if err != nil {
				return nil, apierrors.NewValidationError("InvalidPath", fmt.Sprintf("malformed array index in %q", path))
			}
			segs = append(segs, segment{Index: idx})
			rest = rest[closeIdx+1:]
		}
	}
	return segs, nil
}

func setAtPath(root any, segs []segment, value any) error {
	if len(segs) == 0 {
		return apierrors.NewValidationError("InvalidPath", "empty path")
	}
	cur := root
	for i, s := range segs {
		last := i == len(segs)-1
		switch {
		case s.Key != "":
			m, ok := cur.(map[string]any)
			if !ok {
				return apierrors.NewValidationError("InvalidPath", "path traverses a non-object value")
			}
			if last {
				m[s.Key] = value
				return nil
			}
			next, ok := m[s.Key]
			if !ok {
				next = map[string]any{}
				m[s.Key] = next
			}
			cur = next
		default:
			arr, ok := cur.([]any)
			if !ok || s.Index < 0 || s.Index >= len(arr) {
				return apierrors.NewValidationError("InvalidPath", "path traverses a missing array index")
			}
			if last {
				arr[s.Index] = value
				return nil
			}
			cur = arr[s.Index]
		}
	}
	return nil
}

// deepCopy round-trips through the same shape jsonpath/encoding-json
// would produce: maps/slices/scalars. Used so ApplyResultPath never
// mutates the caller's input.
func deepCopy(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			c, err := deepCopy(val)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			c, err := deepCopy(val)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveTemplate walks template, resolving every key ending in ".$"
// (whose value must be a path string) against source, and recursing into
// nested maps (spec §4.5.2 Parameters / ContextParameters).
func resolveTemplate(template map[string]any, source any) (map[string]any, error) {
	out := make(map[string]any, len(template))
	for k, v := range template {
		if strings.HasSuffix(k, ".$") {
			pathVal, ok := v.(string)
			if !ok {
				return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("parameter %q must be a path string", k))
			}
			resolved, err := Get(pathVal, source)
			if err != nil {
				return nil, err
			}
			out[strings.TrimSuffix(k, ".$")] = resolved
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			r, err := resolveTemplate(nested, source)
			if err != nil {
				return nil, err
			}
			out[k] = r
			continue
		}
		out[k] = v
	}
	return out, nil
}

// ApplyParameters resolves a Task/Pass/Parallel/Map state's Parameters
// template against the state's (post-InputPath) input.
func ApplyParameters(template map[string]any, input any) (map[string]any, error) {
	return resolveTemplate(template, input)
}

// ApplyContextParameters resolves a Parameters-shaped template against
// the execution context object (e.g. $$.Execution.Id) rather than input.
func ApplyContextParameters(template map[string]any, context any) (map[string]any, error) {
	return resolveTemplate(template, context)
}
