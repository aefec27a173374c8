package query

import (
	"sort"
	"strings"
	"time"
)

// Record exposes column values to the in-memory evaluator. A missing or NULL
// column reports (nil, true) or (_, false); both are treated as NULL.
type Record interface {
	FieldValue(field string) (any, bool)
}

// Apply filters, sorts and pages records according to d and returns the page
// together with the number of matching records.
func Apply[T Record](d Descriptor, records []T) ([]T, int) {
	matched := make([]T, 0, len(records))
	for _, r := range records {
		if Matches(d, r) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return less(d.Sort, matched[i], matched[j])
	})

	total := len(matched)
	start := d.Page.Offset()
	if start >= total || d.Page.Limit <= 0 {
		return []T{}, total
	}
	end := min(start+d.Page.Limit, total)
	return matched[start:end], total
}

// Matches reports whether r satisfies every predicate and the text search.
func Matches(d Descriptor, r Record) bool {
	for _, p := range d.Predicates {
		v, _ := r.FieldValue(p.Field)
		if !matchPredicate(p, v) {
			return false
		}
	}
	if d.Search != nil {
		found := false
		for _, f := range d.Search.Fields {
			v, _ := r.FieldValue(f)
			if containsFold(v, d.Search.Term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchPredicate(p Predicate, v any) bool {
	v = deref(v)
	if v == nil {
		// SQL comparisons against NULL are never true, including <>.
		return false
	}
	switch p.Op {
	case OpILike:
		term, _ := p.Value.(string)
		return containsFold(v, term)
	case OpEq:
		return compare(v, p.Value) == 0
	case OpNeq:
		return compare(v, p.Value) != 0
	case OpGte:
		c, ok := compareOrdered(v, p.Value)
		return ok && c >= 0
	case OpLte:
		c, ok := compareOrdered(v, p.Value)
		return ok && c <= 0
	}
	return false
}

func less(s Sort, a, b Record) bool {
	av, _ := a.FieldValue(s.Field)
	bv, _ := b.FieldValue(s.Field)
	c := compareNullable(deref(av), deref(bv))
	if s.Desc {
		c = -c
	}
	if c != 0 {
		return c < 0
	}
	aid, _ := a.FieldValue(FieldID)
	bid, _ := b.FieldValue(FieldID)
	return compareNullable(deref(aid), deref(bid)) < 0
}

// compareNullable orders NULL after every value, as Postgres does for ASC.
func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compare(a, b)
}

func compare(a, b any) int {
	if c, ok := compareOrdered(a, b); ok {
		return c
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(toString(a), toString(b))
}

func compareOrdered(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), true
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case interface{ String() string }:
		return s.String()
	}
	return ""
}

func containsFold(v any, term string) bool {
	s, ok := deref(v).(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

func deref(v any) any {
	switch p := v.(type) {
	case *int:
		if p == nil {
			return nil
		}
		return *p
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *time.Time:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}
