package pagination

// Record is one item's accumulated fields within a batch. Values are
// typically strings, counters (int) or lists of strings.
type Record map[string]any

// Accumulator collects per-item records across continuation pages,
// preserving first-seen order. Repeated pages may address the same
// logical item because some sub-fields arrive a page at a time; merging
// sums counters and extends lists, and leaves other fields at their
// first-page value. Deduplication of list entries is the caller's
// responsibility.
type Accumulator struct {
	order []string
	recs  map[string]Record
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{recs: make(map[string]Record)}
}

// Has reports whether key was already seeded.
func (a *Accumulator) Has(key string) bool {
	_, ok := a.recs[key]
	return ok
}

// Seed inserts the initial record for key. Later pages merge into it.
// Seeding an existing key is ignored; the first page wins.
func (a *Accumulator) Seed(key string, rec Record) {
	if _, ok := a.recs[key]; ok {
		return
	}
	a.order = append(a.order, key)
	a.recs[key] = rec
}

// Merge folds rec's fields into the record for key: int counters are
// summed, []string fields are extended, any other field is set only if
// absent. Merging an unseeded key seeds it.
func (a *Accumulator) Merge(key string, rec Record) {
	existing, ok := a.recs[key]
	if !ok {
		a.Seed(key, rec)
		return
	}

	for field, value := range rec {
		current, present := existing[field]
		if !present {
			existing[field] = value
			continue
		}
		switch cur := current.(type) {
		case int:
			if inc, ok := value.(int); ok {
				existing[field] = cur + inc
			}
		case []string:
			if more, ok := value.([]string); ok {
				existing[field] = append(cur, more...)
			}
		}
	}
}

// Get returns the record for key.
func (a *Accumulator) Get(key string) (Record, bool) {
	rec, ok := a.recs[key]
	return rec, ok
}

// Keys returns the accumulated keys in first-seen order.
func (a *Accumulator) Keys() []string {
	return a.order
}

// Len returns the number of accumulated records.
func (a *Accumulator) Len() int {
	return len(a.recs)
}
