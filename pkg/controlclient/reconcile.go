package controlclient

// Reconcile returns a copy of local in which the element with the given key
// is replaced by the server's element with that key, or by fallback when the
// server list does not contain it. Other elements are left as they are, so
// edits made locally to sibling entries survive.
func Reconcile[T any](local []T, key string, fallback T, server []T, keyOf func(T) string) []T {
	confirmed := fallback
	for _, item := range server {
		if keyOf(item) == key {
			confirmed = item
			break
		}
	}
	out := make([]T, len(local))
	for i, item := range local {
		if keyOf(item) == key {
			out[i] = confirmed
		} else {
			out[i] = item
		}
	}
	return out
}

// upsert replaces the element with entry's key or appends entry.
func upsert[T any](list []T, entry T, keyOf func(T) string) []T {
	key := keyOf(entry)
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	for i, item := range out {
		if keyOf(item) == key {
			out[i] = entry
			return out
		}
	}
	return append(out, entry)
}
