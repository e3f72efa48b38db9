package sliceutil

// Map returns f applied to every element of v, in order.
func Map[From any, To any](v []From, f func(From) To) []To {
	out := make([]To, len(v))
	for idx, elem := range v {
		out[idx] = f(elem)
	}
	return out
}

// Filter returns elements of v that keep reports true for, in order.
// v is not modified.
func Filter[T any](v []T, keep func(T) bool) []T {
	out := make([]T, 0, len(v))
	for _, elem := range v {
		if keep(elem) {
			out = append(out, elem)
		}
	}
	return out
}
