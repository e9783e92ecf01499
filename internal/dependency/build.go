package dependency

import "strings"

// ResourceSpec describes one resource from a parsed deployment model. The
// model's own schema is external to this package (§1 OUT OF SCOPE); callers
// translate whatever format they load into this shape before calling Build.
type ResourceSpec struct {
	ID     NodeID
	Kind   NodeKind
	Config map[string]any
	// EnvVars holds compute-function environment variables; used for
	// best-effort data-dependency inference (env var value referencing
	// another resource's name).
	EnvVars map[string]string
	// RouteTarget names the compute function a route set dispatches to,
	// used for trigger-edge inference.
	RouteTarget string
	// EventSources names queues/streams this resource polls, used for
	// event-source edge inference.
	EventSources []string
}

// Build ingests a parsed deployment model and produces a directed graph:
// one node per resource, plus best-effort inferred edges. Inference is
// name-matching only; references that don't resolve to a known node id are
// silently dropped, per spec (unmatched references are reported by the
// external validator, not here).
func Build(resources []ResourceSpec) *Graph {
	g := New()
	names := make(map[string]NodeID, len(resources))
	for _, r := range resources {
		g.AddNode(Node{ID: r.ID, Kind: r.Kind, Config: r.Config})
		names[string(r.ID)] = r.ID
	}

	for _, r := range resources {
		for _, v := range r.EnvVars {
			if !looksLikeReference(v) {
				continue
			}
			if target, ok := names[v]; ok && target != r.ID {
				_ = g.AddEdge(Edge{Source: r.ID, Target: target, Kind: EdgeDataDependency})
			}
		}
		if r.RouteTarget != "" {
			if target, ok := names[r.RouteTarget]; ok && target != r.ID {
				_ = g.AddEdge(Edge{Source: r.ID, Target: target, Kind: EdgeTrigger})
			}
		}
		for _, src := range r.EventSources {
			if target, ok := names[src]; ok && target != r.ID {
				_ = g.AddEdge(Edge{Source: r.ID, Target: target, Kind: EdgeEventSource})
			}
		}
	}
	return g
}

// looksLikeReference is a small helper inference rules can use to decide
// whether an env var value is plausibly a resource-name reference rather
// than an arbitrary literal (e.g. it contains no whitespace and no URL
// scheme separator that would mark it as already-resolved).
func looksLikeReference(v string) bool {
	if v == "" || strings.ContainsAny(v, " \t\n") {
		return false
	}
	return !strings.Contains(v, "://")
}
