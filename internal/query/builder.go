// Package query turns listing/search query-string parameters into a
// backend-agnostic Descriptor of predicates, sort order and page window.
// Repositories translate a Descriptor into their own query language; Apply
// evaluates one over an in-memory slice.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Canonical column names of the properties table.
const (
	FieldID                 = "id"
	FieldAgentID            = "agent_id"
	FieldTitle              = "title"
	FieldDescription        = "description"
	FieldAddress            = "address"
	FieldCity               = "city"
	FieldState              = "state"
	FieldPostalCode         = "postal_code"
	FieldPrice              = "price"
	FieldBedrooms           = "bedrooms"
	FieldBathrooms          = "bathrooms"
	FieldAreaSqft           = "area_sqft"
	FieldYearBuilt          = "year_built"
	FieldPropertyType       = "property_type"
	FieldListingType        = "listing_type"
	FieldStatus             = "status"
	FieldIsFeatured         = "is_featured"
	FieldHasGarage          = "has_garage"
	FieldHasPool            = "has_pool"
	FieldHasGarden          = "has_garden"
	FieldHasAirConditioning = "has_air_conditioning"
	FieldIsFurnished        = "is_furnished"
	FieldPetsAllowed        = "pets_allowed"
	FieldCreatedAt          = "created_at"
	FieldUpdatedAt          = "updated_at"
)

// SearchableFields are OR-combined for free-text search.
var SearchableFields = []string{FieldTitle, FieldDescription, FieldAddress, FieldCity, FieldState, FieldPostalCode}

var (
	PropertyTypes = []string{"house", "apartment", "condo", "townhouse", "land", "commercial"}
	ListingTypes  = []string{"sale", "rent"}
	// Statuses a caller may filter on. "deleted" is never queryable.
	QueryableStatuses = []string{"active", "pending", "sold"}
)

var sortColumns = map[string]string{
	"price":     FieldPrice,
	"bedrooms":  FieldBedrooms,
	"bathrooms": FieldBathrooms,
	"areaSqft":  FieldAreaSqft,
	"yearBuilt": FieldYearBuilt,
	"createdAt": FieldCreatedAt,
	"updatedAt": FieldUpdatedAt,
}

type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGte   Op = "gte"
	OpLte   Op = "lte"
	OpILike Op = "ilike" // case-insensitive substring
)

type Predicate struct {
	Field string
	Op    Op
	Value any
}

type TextSearch struct {
	Term   string
	Fields []string
}

type Sort struct {
	Field string
	Desc  bool
}

// MaxOffset bounds (page-1)*limit so every backend can express it.
const MaxOffset = math.MaxInt32

type Page struct {
	Page  int
	Limit int
}

// Offset is never negative and saturates at math.MaxInt instead of
// overflowing.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

type Descriptor struct {
	Predicates []Predicate
	Search     *TextSearch
	Sort       Sort
	Page       Page
}

// HasPredicate reports whether any predicate targets field.
func (d Descriptor) HasPredicate(field string) bool {
	for _, p := range d.Predicates {
		if p.Field == field {
			return true
		}
	}
	return false
}

// With returns a copy of d with extra predicates appended.
func (d Descriptor) With(preds ...Predicate) Descriptor {
	out := d
	out.Predicates = append(append([]Predicate(nil), d.Predicates...), preds...)
	return out
}

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	ListingOptions = Options{DefaultLimit: 12, MaxLimit: 100}
	SearchOptions  = Options{DefaultLimit: 10, MaxLimit: 100}
	AdminOptions   = Options{DefaultLimit: 20, MaxLimit: 100}
)

// Default is the descriptor produced from an empty parameter set.
func Default(opts Options) Descriptor {
	return Descriptor{
		Sort: Sort{Field: FieldCreatedAt, Desc: true},
		Page: Page{Page: 1, Limit: opts.DefaultLimit},
	}
}

// ValidationError lists every malformed parameter of a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid query parameters: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

type rangeParam struct {
	min, max []string
	field    string
	integer  bool
}

var rangeParams = []rangeParam{
	{min: []string{"minPrice"}, max: []string{"maxPrice"}, field: FieldPrice},
	{min: []string{"minBedrooms"}, max: []string{"maxBedrooms"}, field: FieldBedrooms, integer: true},
	{min: []string{"minBathrooms"}, max: []string{"maxBathrooms"}, field: FieldBathrooms},
	{min: []string{"minArea", "minSquareFeet"}, max: []string{"maxArea", "maxSquareFeet"}, field: FieldAreaSqft, integer: true},
	{min: []string{"minYearBuilt"}, max: []string{"maxYearBuilt"}, field: FieldYearBuilt, integer: true},
}

type boolParam struct {
	keys  []string
	field string
}

var boolParams = []boolParam{
	{keys: []string{"isFeatured", "featured"}, field: FieldIsFeatured},
	{keys: []string{"hasGarage"}, field: FieldHasGarage},
	{keys: []string{"hasPool"}, field: FieldHasPool},
	{keys: []string{"hasGarden"}, field: FieldHasGarden},
	{keys: []string{"hasAirConditioning"}, field: FieldHasAirConditioning},
	{keys: []string{"isFurnished"}, field: FieldIsFurnished},
	{keys: []string{"petsAllowed"}, field: FieldPetsAllowed},
}

// Build parses values into a Descriptor. Absent or empty parameters are
// skipped; present but malformed ones are collected into a *ValidationError.
func Build(values url.Values, opts Options) (Descriptor, error) {
	d := Default(opts)
	verr := &ValidationError{}

	for _, rp := range rangeParams {
		if key, raw, ok := lookup(values, rp.min...); ok {
			if v, err := parseNumber(raw, rp.integer); err != nil {
				verr.add(key, err.Error())
			} else {
				d.Predicates = append(d.Predicates, Predicate{Field: rp.field, Op: OpGte, Value: v})
			}
		}
		if key, raw, ok := lookup(values, rp.max...); ok {
			if v, err := parseNumber(raw, rp.integer); err != nil {
				verr.add(key, err.Error())
			} else {
				d.Predicates = append(d.Predicates, Predicate{Field: rp.field, Op: OpLte, Value: v})
			}
		}
	}

	if key, raw, ok := lookup(values, "bedrooms", "beds"); ok {
		if p, err := parseAtLeast(FieldBedrooms, raw, true); err != nil {
			verr.add(key, err.Error())
		} else {
			d.Predicates = append(d.Predicates, p)
		}
	}
	if key, raw, ok := lookup(values, "bathrooms", "baths"); ok {
		if p, err := parseAtLeast(FieldBathrooms, raw, false); err != nil {
			verr.add(key, err.Error())
		} else {
			d.Predicates = append(d.Predicates, p)
		}
	}

	for _, tp := range []struct {
		key, field string
	}{{"city", FieldCity}, {"state", FieldState}} {
		if _, raw, ok := lookup(values, tp.key); ok {
			if term := SanitizeTerm(raw); term != "" {
				d.Predicates = append(d.Predicates, Predicate{Field: tp.field, Op: OpILike, Value: term})
			}
		}
	}

	enumParams := []struct {
		keys    []string
		field   string
		allowed []string
	}{
		{[]string{"propertyType", "type"}, FieldPropertyType, PropertyTypes},
		{[]string{"listingType"}, FieldListingType, ListingTypes},
		{[]string{"status"}, FieldStatus, QueryableStatuses},
	}
	for _, ep := range enumParams {
		if key, raw, ok := lookup(values, ep.keys...); ok {
			v := strings.ToLower(raw)
			if !contains(ep.allowed, v) {
				verr.add(key, "must be one of "+strings.Join(ep.allowed, ", "))
				continue
			}
			d.Predicates = append(d.Predicates, Predicate{Field: ep.field, Op: OpEq, Value: v})
		}
	}

	for _, bp := range boolParams {
		if key, raw, ok := lookup(values, bp.keys...); ok {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				verr.add(key, "must be true or false")
				continue
			}
			d.Predicates = append(d.Predicates, Predicate{Field: bp.field, Op: OpEq, Value: b})
		}
	}

	if key, raw, ok := lookup(values, "agentId", "agent_id"); ok {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.add(key, "must be a UUID")
		} else {
			d.Predicates = append(d.Predicates, Predicate{Field: FieldAgentID, Op: OpEq, Value: id.String()})
		}
	}

	if _, raw, ok := lookup(values, "q", "search"); ok {
		if term := SanitizeTerm(raw); term != "" {
			d.Search = &TextSearch{Term: term, Fields: SearchableFields}
		}
	}

	if _, raw, ok := lookup(values, "sortBy", "sort"); ok {
		if col, found := SortColumn(raw); found {
			d.Sort.Field = col
		}
	}
	if _, raw, ok := lookup(values, "sortOrder", "order"); ok {
		d.Sort.Desc = !strings.EqualFold(raw, "asc")
	}

	pageKey, rawPage, hasPage := lookup(values, "page")
	if hasPage {
		n, err := strconv.Atoi(rawPage)
		if err != nil {
			verr.add(pageKey, "must be an integer")
		} else {
			d.Page.Page = max(n, 1)
		}
	}
	if key, raw, ok := lookup(values, "limit"); ok {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			verr.add(key, "must be an integer")
		case n <= 0:
			d.Page.Limit = opts.DefaultLimit
		default:
			d.Page.Limit = min(n, opts.MaxLimit)
		}
	}
	if last := MaxOffset/d.Page.Limit + 1; hasPage && d.Page.Page > last {
		verr.add(pageKey, fmt.Sprintf("must be at most %d", last))
	}

	if len(verr.Fields) > 0 {
		return Descriptor{}, verr
	}
	return d, nil
}

// SortColumn maps a public sort key (or its column name) to a column.
func SortColumn(key string) (string, bool) {
	if col, ok := sortColumns[key]; ok {
		return col, true
	}
	for _, col := range sortColumns {
		if col == key {
			return col, true
		}
	}
	return "", false
}

// lookup returns the first non-empty value among keys.
func lookup(values url.Values, keys ...string) (string, string, bool) {
	for _, k := range keys {
		for _, v := range values[k] {
			if v = strings.TrimSpace(v); v != "" {
				return k, v, true
			}
		}
	}
	return "", "", false
}

func parseNumber(raw string, integer bool) (any, error) {
	if integer {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("must be a number")
	}
	if f < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return f, nil
}

// parseAtLeast reads "N" (exact) or "N+" (at least N).
func parseAtLeast(field, raw string, integer bool) (Predicate, error) {
	op := OpEq
	if strings.HasSuffix(raw, "+") {
		op = OpGte
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "+"))
	}
	v, err := parseNumber(raw, integer)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Field: field, Op: op, Value: v}, nil
}

var termReplacer = strings.NewReplacer("%", "", "_", "", "*", "", ",", " ", "(", "", ")", "", "\"", "", "\\", "")

// SanitizeTerm strips pattern and filter-syntax characters from a search term.
func SanitizeTerm(raw string) string {
	return strings.Join(strings.Fields(termReplacer.Replace(raw)), " ")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
