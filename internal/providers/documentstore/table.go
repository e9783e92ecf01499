package documentstore

// KeySchema names the partition (and optional sort) attribute of a table
// or a GSI.
type KeySchema struct {
	Partition string
	Sort      string // "" if the schema has no sort key
}

// GSI is a secondary key schema maintained alongside the primary one,
// enabling queries by a different key (spec §3/GLOSSARY).
type GSI struct {
	Name       string
	KeySchema  KeySchema
	Projection []string // recorded only; index queries return full base items whatever it holds
}

// StreamView selects what a change-stream record carries for a mutation.
type StreamView string

const (
	StreamViewKeysOnly    StreamView = "keys-only"
	StreamViewNewImage    StreamView = "new-image"
	StreamViewOldImage    StreamView = "old-image"
	StreamViewNewAndOld   StreamView = "new-and-old"
)

// StreamConfig is the per-table stream configuration (spec §3).
type StreamConfig struct {
	Enabled  bool
	View     StreamView
	KeyAttrs []string
}

// Table is the document-store entity described in spec §3.
type Table struct {
	Name      string
	KeySchema KeySchema
	GSIs      []GSI
	Stream    StreamConfig
}

func (t Table) gsiByName(name string) (GSI, bool) {
	for _, g := range t.GSIs {
		if g.Name == name {
			return g, true
		}
	}
	return GSI{}, false
}

// compositeKey extracts the partition (and sort, if any) value of item
// per ks, returning false if the partition attribute is missing (every
// item must contain the full composite key, per spec §3 invariant — a
// caller violating that is a validation error, raised by Put).
func compositeKey(item Item, ks KeySchema) (Value, Value, bool) {
	pk, ok := item[ks.Partition]
	if !ok {
		return Value{}, Value{}, false
	}
	if ks.Sort == "" {
		return pk, Value{}, true
	}
	sk, ok := item[ks.Sort]
	if !ok {
		return Value{}, Value{}, false
	}
	return pk, sk, true
}
