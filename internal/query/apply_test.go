package query

import (
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	id        string
	title     string
	city      string
	price     float64
	bedrooms  int
	yearBuilt *int
	status    string
	featured  bool
	created   time.Time
}

func (l listing) FieldValue(field string) (any, bool) {
	switch field {
	case FieldID:
		return l.id, true
	case FieldTitle:
		return l.title, true
	case FieldCity:
		return l.city, true
	case FieldPrice:
		return l.price, true
	case FieldBedrooms:
		return l.bedrooms, true
	case FieldYearBuilt:
		return l.yearBuilt, true
	case FieldStatus:
		return l.status, true
	case FieldIsFeatured:
		return l.featured, true
	case FieldCreatedAt:
		return l.created, true
	}
	return nil, false
}

func intp(n int) *int { return &n }

func fixtures() []listing {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []listing{
		{id: "a", title: "Ocean View Condo", city: "San Diego", price: 650000, bedrooms: 2, yearBuilt: intp(2005), status: "active", created: base.Add(1 * time.Hour)},
		{id: "b", title: "Family Home", city: "Austin", price: 420000, bedrooms: 4, yearBuilt: intp(1998), status: "active", featured: true, created: base.Add(2 * time.Hour)},
		{id: "c", title: "Downtown Loft", city: "Austin", price: 310000, bedrooms: 1, status: "pending", created: base.Add(3 * time.Hour)},
		{id: "d", title: "Ranch", city: "San Antonio", price: 420000, bedrooms: 3, yearBuilt: intp(1975), status: "sold", created: base.Add(4 * time.Hour)},
		{id: "e", title: "Old listing", city: "Austin", price: 100, bedrooms: 3, status: "deleted", created: base.Add(5 * time.Hour)},
	}
}

func ids(ls []listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.id)
	}
	return out
}

func apply(t *testing.T, raw string, extra ...Predicate) ([]string, int) {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	d, err := Build(values, ListingOptions)
	require.NoError(t, err)
	page, total := Apply(d.With(extra...), fixtures())
	return ids(page), total
}

func TestApply_DefaultOrderIsNewestFirst(t *testing.T) {
	got, total := apply(t, "")
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, got)
	assert.Equal(t, 5, total)
}

func TestApply_HidesDeletedWhenAsked(t *testing.T) {
	got, total := apply(t, "", Predicate{Field: FieldStatus, Op: OpNeq, Value: "deleted"})
	assert.Equal(t, []string{"d", "c", "b", "a"}, got)
	assert.Equal(t, 4, total)
}

func TestApply_RangeAndAtLeast(t *testing.T) {
	got, _ := apply(t, "minPrice=300000&maxPrice=500000&bedrooms=3%2B")
	assert.Equal(t, []string{"d", "b"}, got)
}

func TestApply_InvertedRangeMatchesNothing(t *testing.T) {
	got, total := apply(t, "minPrice=500000&maxPrice=100")
	assert.Empty(t, got)
	assert.Zero(t, total)
}

func TestApply_TextSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	got, _ := apply(t, "q=AUSTIN&sortBy=price&sortOrder=asc")
	assert.Equal(t, []string{"e", "c", "b"}, got)

	got, _ = apply(t, "q=ocean")
	assert.Equal(t, []string{"a"}, got)

	got, _ = apply(t, "city=san")
	assert.Equal(t, []string{"d", "a"}, got)
}

func TestApply_SortTiesBrokenByID(t *testing.T) {
	got, _ := apply(t, "sortBy=price&sortOrder=desc&minPrice=400000")
	assert.Equal(t, []string{"a", "b", "d"}, got)
}

func TestApply_NullsSortLastAscending(t *testing.T) {
	got, _ := apply(t, "sortBy=yearBuilt&sortOrder=asc")
	assert.Equal(t, []string{"d", "b", "a", "c", "e"}, got)

	got, _ = apply(t, "minYearBuilt=1900")
	assert.NotContains(t, got, "c", "NULL never satisfies a range")
}

func TestApply_Pagination(t *testing.T) {
	got, total := apply(t, "sortBy=createdAt&sortOrder=asc&limit=2&page=2")
	assert.Equal(t, []string{"c", "d"}, got)
	assert.Equal(t, 5, total)

	got, total = apply(t, "limit=2&page=9")
	assert.Empty(t, got)
	assert.Equal(t, 5, total)

	d := Default(ListingOptions)
	d.Page = Page{Page: math.MaxInt, Limit: 100}
	assert.NotPanics(t, func() {
		page, n := Apply(d, fixtures())
		assert.Empty(t, page)
		assert.Equal(t, 5, n)
	})
}

func TestApply_BooleanPredicate(t *testing.T) {
	got, _ := apply(t, "isFeatured=true")
	assert.Equal(t, []string{"b"}, got)
}
