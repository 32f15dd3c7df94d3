package moonshine

// table hands out monotonically increasing handles and never recycles them,
// so a stale handle can always be told apart from a live one.
type table[H ~uint32, V any] struct {
	next  H
	items map[H]V
}

func newTable[H ~uint32, V any]() table[H, V] {
	return table[H, V]{items: make(map[H]V)}
}

func (t *table[H, V]) insert(v V) H {
	h := t.next
	t.next++
	t.items[h] = v
	return h
}

func (t *table[H, V]) get(h H) (V, bool) {
	v, ok := t.items[h]
	return v, ok
}

func (t *table[H, V]) set(h H, v V) bool {
	if _, ok := t.items[h]; !ok {
		return false
	}
	t.items[h] = v
	return true
}

func (t *table[H, V]) remove(h H) bool {
	if _, ok := t.items[h]; !ok {
		return false
	}
	delete(t.items, h)
	return true
}

func (t *table[H, V]) len() int {
	return len(t.items)
}
