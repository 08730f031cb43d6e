package classify

import "metaview/internal/metadata"

// Table is an ordered rule list with a fallback bucket. Rules are evaluated
// in order and the first match wins. A Table is immutable once built.
type Table struct {
	rules    []Rule
	fallback string
	order    []string
}

// NewTable builds a table. Bucket order in the output follows the rules,
// followed by the fallback bucket.
func NewTable(fallback string, rules ...Rule) *Table {
	cp := make([]Rule, 0, len(rules))
	order := make([]string, 0, len(rules)+1)
	seen := make(map[string]struct{}, len(rules)+1)
	for _, rule := range rules {
		if rule.Match == nil {
			continue
		}
		cp = append(cp, rule)
		if _, ok := seen[rule.Bucket]; !ok {
			seen[rule.Bucket] = struct{}{}
			order = append(order, rule.Bucket)
		}
	}
	if _, ok := seen[fallback]; !ok {
		order = append(order, fallback)
	}
	return &Table{rules: cp, fallback: fallback, order: order}
}

// BucketNames returns the bucket names in presentation order.
func (t *Table) BucketNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Assign returns the bucket a single key belongs to.
func (t *Table) Assign(key string) string {
	for _, rule := range t.rules {
		if rule.Match(key) {
			return rule.Bucket
		}
	}
	return t.fallback
}

// Classify partitions m into the table's buckets. Every key lands in exactly
// one bucket; buckets with no entries are still returned.
func (t *Table) Classify(m metadata.Map) Buckets {
	index := make(map[string]int, len(t.order))
	list := make([]Bucket, len(t.order))
	for i, name := range t.order {
		index[name] = i
		list[i] = Bucket{Name: name, Entries: metadata.Map{}}
	}
	for key, value := range m {
		list[index[t.Assign(key)]].Entries[key] = value
	}
	return Buckets{list: list}
}

// Bucket is one named grouping of fields.
type Bucket struct {
	Name    string
	Entries metadata.Map
}

// Empty reports whether the bucket has no entries.
func (b Bucket) Empty() bool { return len(b.Entries) == 0 }

// Buckets is the ordered classification output.
type Buckets struct {
	list []Bucket
}

// All returns the buckets in presentation order, including empty ones.
func (b Buckets) All() []Bucket {
	out := make([]Bucket, len(b.list))
	copy(out, b.list)
	return out
}

// Get looks up a bucket by name. The boolean is false only when the table
// has no such bucket; an empty bucket is still reported as present.
func (b Buckets) Get(name string) (Bucket, bool) {
	for _, bucket := range b.list {
		if bucket.Name == name {
			return bucket, true
		}
	}
	return Bucket{}, false
}

// NonEmpty returns only buckets with entries, in order.
func (b Buckets) NonEmpty() []Bucket {
	out := make([]Bucket, 0, len(b.list))
	for _, bucket := range b.list {
		if !bucket.Empty() {
			out = append(out, bucket)
		}
	}
	return out
}

// Len counts entries across all buckets.
func (b Buckets) Len() int {
	total := 0
	for _, bucket := range b.list {
		total += len(bucket.Entries)
	}
	return total
}

// Counts maps bucket name to entry count.
func (b Buckets) Counts() map[string]int {
	out := make(map[string]int, len(b.list))
	for _, bucket := range b.list {
		out[bucket.Name] = len(bucket.Entries)
	}
	return out
}
