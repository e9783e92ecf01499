package documentstore

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// sortableKeyPart renders a Value as a string that badger's lexicographic
// iteration orders the same way the spec's comparison operators do. Only
// S, N, and B ever appear as key/sort-key attributes.
func sortableKeyPart(v Value) string {
	switch v.Kind {
	case KindS:
		return "S:" + v.S
	case KindN:
		f, _ := v.AsFloat()
		return "N:" + orderPreservingNumber(f)
	case KindB:
		return "B:" + hex.EncodeToString(v.B)
	default:
		return "?:" + v.Kind.string()
	}
}

func (k ValueKind) string() string { return string(k) }

// orderPreservingNumber maps a float64 onto a fixed-width decimal string
// such that lexical string ordering matches numeric ordering, by shifting
// into a large positive range before formatting. This is an emulator-grade
// approximation (not arbitrary precision), adequate for key-condition scan
// bounds and sort-key ordering of realistic test data.
const numericOffset = 1e15

func orderPreservingNumber(f float64) string {
	shifted := f + numericOffset
	return fmt.Sprintf("%030.9f", shifted)
}

// itemKey builds the base-row storage key for a table's primary index.
func itemKey(table string, pk, sk Value, hasSort bool) []byte {
	var sb strings.Builder
	sb.WriteString("item#")
	sb.WriteString(table)
	sb.WriteString("#")
	sb.WriteString(sortableKeyPart(pk))
	if hasSort {
		sb.WriteString("#")
		sb.WriteString(sortableKeyPart(sk))
	}
	return []byte(sb.String())
}

// itemKeyPrefix builds the scan prefix for every row under one partition
// key (used by Query).
func itemKeyPrefix(table string, pk Value) []byte {
	return []byte("item#" + table + "#" + sortableKeyPart(pk) + "#")
}

// tableScanPrefix builds the scan prefix for every row in a table (used by
// Scan).
func tableScanPrefix(table string) []byte {
	return []byte("item#" + table + "#")
}

// gsiKey builds a secondary-index entry key: the GSI's composite key
// followed by the base row's composite key, so distinct base rows sharing
// a GSI key never collide.
func gsiKey(table, gsi string, gpk, gsk Value, hasGSISort bool, basePk, baseSk Value, hasBaseSort bool) []byte {
	var sb strings.Builder
	sb.WriteString("gsi#")
	sb.WriteString(table)
	sb.WriteString("#")
	sb.WriteString(gsi)
	sb.WriteString("#")
	sb.WriteString(sortableKeyPart(gpk))
	if hasGSISort {
		sb.WriteString("#")
		sb.WriteString(sortableKeyPart(gsk))
	}
	sb.WriteString("#")
	sb.WriteString(sortableKeyPart(basePk))
	if hasBaseSort {
		sb.WriteString("#")
		sb.WriteString(sortableKeyPart(baseSk))
	}
	return []byte(sb.String())
}

func gsiKeyPrefix(table, gsi string, gpk Value) []byte {
	return []byte("gsi#" + table + "#" + gsi + "#" + sortableKeyPart(gpk) + "#")
}
