package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Field is one dimension/value pair of a bucket key.
type Field struct {
	Dimension string
	Value     string
}

// Key identifies a bucket. Fields follow the groupBy order.
type Key []Field

// Value returns the value for a dimension of the key.
func (k Key) Value(dimension string) string {
	for _, f := range k {
		if f.Dimension == dimension {
			return f.Value
		}
	}
	return ""
}

// Label joins the key values, e.g. "3 / FEMALE".
func (k Key) Label() string {
	vals := make([]string, len(k))
	for i, f := range k {
		vals[i] = f.Value
	}
	return strings.Join(vals, " / ")
}

// String returns "ward=3|gender=FEMALE".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, f := range k {
		parts[i] = f.Dimension + "=" + f.Value
	}
	return strings.Join(parts, "|")
}

// id is the bucket identity. Values are quoted so that separators inside a
// value cannot make two keys collide.
func (k Key) id() string {
	var b strings.Builder
	for _, f := range k {
		b.WriteString(strconv.Quote(f.Dimension))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(f.Value))
		b.WriteByte(';')
	}
	return b.String()
}

// MarshalJSON writes the key as an object whose members keep groupBy order.
func (k Key) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range k {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Dimension)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Bucket is the summed measure of all rows sharing a key.
type Bucket struct {
	Key     Key     `json:"key"`
	Measure float64 `json:"measure"`
	Rows    int     `json:"rows"`
}

// Aggregate groups rows by the composite key of groupBy and sums their
// measures. Buckets come out in first-seen order.
func Aggregate(rows []Row, groupBy []string) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)

	for _, row := range rows {
		key := keyOf(row, groupBy)
		id := key.id()
		i, seen := index[id]
		if !seen {
			i = len(buckets)
			index[id] = i
			buckets = append(buckets, Bucket{Key: key})
		}
		buckets[i].Measure += row.value()
		buckets[i].Rows++
	}
	return buckets
}

func keyOf(row Row, groupBy []string) Key {
	key := make(Key, len(groupBy))
	for i, dim := range groupBy {
		key[i] = Field{Dimension: dim, Value: row.Dimension(dim)}
	}
	return key
}

// Filter returns the rows whose dimension equals value, keeping input order.
func Filter(rows []Row, dimension, value string) []Row {
	out := make([]Row, 0)
	for _, row := range rows {
		if row.Dimension(dimension) == value {
			out = append(out, row)
		}
	}
	return out
}

// Sum adds up bucket measures.
func Sum(buckets []Bucket) float64 {
	var total float64
	for _, b := range buckets {
		total += b.Measure
	}
	return total
}

// SortOrder names an explicit breakdown ordering.
type SortOrder string

const (
	SortNone        SortOrder = "none"
	SortMeasureDesc SortOrder = "measure_desc"
	SortMeasureAsc  SortOrder = "measure_asc"
	SortKeyAsc      SortOrder = "key_asc"
	SortKeyDesc     SortOrder = "key_desc"
)

// ParseSortOrder maps user input to a SortOrder. Empty input means SortNone.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortNone, nil
	case SortNone, SortMeasureDesc, SortMeasureAsc, SortKeyAsc, SortKeyDesc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// SortBuckets orders buckets in place. The sort is stable, so equal buckets
// keep their first-seen order.
func SortBuckets(buckets []Bucket, order SortOrder) {
	if cmp := bucketCompare(order); cmp != nil {
		slices.SortStableFunc(buckets, cmp)
	}
}

// bucketCompare returns the comparison for order, or nil when the order keeps
// buckets as they are.
func bucketCompare(order SortOrder) func(a, b Bucket) int {
	switch order {
	case SortMeasureDesc:
		return func(a, b Bucket) int { return compareFloat(b.Measure, a.Measure) }
	case SortMeasureAsc:
		return func(a, b Bucket) int { return compareFloat(a.Measure, b.Measure) }
	case SortKeyAsc:
		return func(a, b Bucket) int { return compareKeys(a.Key, b.Key) }
	case SortKeyDesc:
		return func(a, b Bucket) int { return compareKeys(b.Key, a.Key) }
	}
	return nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareKeys compares values field by field, numerically when both values
// are numbers so that ward 10 sorts after ward 9.
func compareKeys(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareValues(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareValues(a, b string) int {
	qa, qb := ParseQuantity(a), ParseQuantity(b)
	va, oka := qa.Value()
	vb, okb := qb.Value()
	if oka && okb {
		return compareFloat(va, vb)
	}
	return strings.Compare(a, b)
}

// Node is one level of a drill-down tree.
type Node struct {
	Bucket
	Children []Node `json:"children,omitempty"`
}

// Drill groups rows by the first dimension, then each group's rows by the
// next one, and so on. Every level keeps first-seen order.
func Drill(rows []Row, groupBy []string) []Node {
	if len(groupBy) == 0 {
		return nil
	}
	dim := groupBy[0]
	buckets := Aggregate(rows, groupBy[:1])
	nodes := make([]Node, len(buckets))
	for i, b := range buckets {
		nodes[i] = Node{Bucket: b}
		if len(groupBy) > 1 {
			nodes[i].Children = Drill(Filter(rows, dim, b.Key.Value(dim)), groupBy[1:])
		}
	}
	return nodes
}
