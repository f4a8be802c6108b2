package harvest

// RosterIndex maps player display names to profile references, preserving the order in
// which names were first added. The zero value is an empty index. Indexes are values:
// With returns a new index and never mutates the receiver.
type RosterIndex struct {
	order []string
	refs  map[string]ProfileReference
}

// NewRosterIndex builds an index from refs in order. Later duplicates of a name are
// discarded.
func NewRosterIndex(refs ...ProfileReference) RosterIndex {
	idx := RosterIndex{
		order: make([]string, 0, len(refs)),
		refs:  make(map[string]ProfileReference, len(refs)),
	}
	for _, ref := range refs {
		idx.add(ref)
	}
	return idx
}

// With returns a copy of the index with ref appended, unless ref.Name is already present.
func (x RosterIndex) With(refs ...ProfileReference) RosterIndex {
	out := x.clone(len(refs))
	for _, ref := range refs {
		out.add(ref)
	}
	return out
}

// Len reports the number of names in the index.
func (x RosterIndex) Len() int {
	return len(x.order)
}

// Get returns the reference stored for name.
func (x RosterIndex) Get(name string) (ProfileReference, bool) {
	ref, ok := x.refs[name]
	return ref, ok
}

// IndexOf returns the iteration position of name, or -1 when it is absent.
func (x RosterIndex) IndexOf(name string) int {
	if _, ok := x.refs[name]; !ok {
		return -1
	}
	for i, n := range x.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Refs returns the references in insertion order. The slice is a copy.
func (x RosterIndex) Refs() []ProfileReference {
	out := make([]ProfileReference, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.refs[name])
	}
	return out
}

// Names returns the display names in insertion order.
func (x RosterIndex) Names() []string {
	return append([]string(nil), x.order...)
}

func (x RosterIndex) clone(extra int) RosterIndex {
	out := RosterIndex{
		order: make([]string, len(x.order), len(x.order)+extra),
		refs:  make(map[string]ProfileReference, len(x.refs)+extra),
	}
	copy(out.order, x.order)
	for k, v := range x.refs {
		out.refs[k] = v
	}
	return out
}

func (x *RosterIndex) add(ref ProfileReference) {
	if ref.Name == "" {
		return
	}
	if _, exists := x.refs[ref.Name]; exists {
		return
	}
	if x.refs == nil {
		x.refs = make(map[string]ProfileReference)
	}
	x.order = append(x.order, ref.Name)
	x.refs[ref.Name] = ref
}
