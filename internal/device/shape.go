package device

// SameShape reports whether two parameter maps share the exact same key
// structure. Both directions are checked: every key in a must exist in b
// and vice versa, recursively, and a leaf in one cannot be a nested map in
// the other. Leaf values themselves are not compared, so a persisted or
// incoming map with the right structure is accepted regardless of the
// values it carries.
func SameShape(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		am, aIsMap := av.(map[string]any)
		bm, bIsMap := bv.(map[string]any)
		if aIsMap != bIsMap {
			return false
		}
		if aIsMap && !SameShape(am, bm) {
			return false
		}
	}
	return true
}
