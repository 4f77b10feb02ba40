package utils

// Unique removes duplicate values, keeping first occurrences in order.
func Unique[S ~[]E, E comparable](slice S) S {
	seen := make(map[E]struct{}, len(slice))
	list := make(S, 0, len(slice))
	for _, entry := range slice {
		if _, ok := seen[entry]; !ok {
			seen[entry] = struct{}{}
			list = append(list, entry)
		}
	}
	return list
}

// Union appends the values of extra missing from base.
func Union[S ~[]E, E comparable](base S, extra ...E) S {
	out := make(S, 0, len(base)+len(extra))
	out = append(out, base...)
	return Unique(append(out, extra...))
}

// Without returns slice minus every occurrence of v, and whether anything was removed.
func Without[S ~[]E, E comparable](slice S, v E) (S, bool) {
	out := make(S, 0, len(slice))
	for _, entry := range slice {
		if entry != v {
			out = append(out, entry)
		}
	}
	return out, len(out) != len(slice)
}
