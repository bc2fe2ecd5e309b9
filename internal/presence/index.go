package presence

// index is a map that remembers first-insertion order. Overwriting a key
// keeps its position; removing and re-adding a key moves it to the end.
type index struct {
	keys    []string
	entries map[string]Record
}

func newIndex() *index {
	return &index{entries: make(map[string]Record)}
}

func (ix *index) get(key string) (Record, bool) {
	r, ok := ix.entries[key]
	return r, ok
}

func (ix *index) set(key string, r Record) {
	if _, ok := ix.entries[key]; !ok {
		ix.keys = append(ix.keys, key)
	}
	ix.entries[key] = r
}

func (ix *index) remove(key string) (Record, bool) {
	r, ok := ix.entries[key]
	if !ok {
		return Record{}, false
	}
	delete(ix.entries, key)
	for i, k := range ix.keys {
		if k == key {
			ix.keys = append(ix.keys[:i], ix.keys[i+1:]...)
			break
		}
	}
	return r, true
}

func (ix *index) each(fn func(r Record)) {
	for _, k := range ix.keys {
		fn(ix.entries[k])
	}
}

func (ix *index) len() int {
	return len(ix.entries)
}
