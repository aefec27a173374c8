package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/joshua-takyi/homeswift/internal/query"
)

const propertySelect = "*,property_images(*)"

type supabaseImage struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	URL        string    `json:"url"`
	IsPrimary  bool      `json:"is_primary"`
	Caption    *string   `json:"caption"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

func (si supabaseImage) image() PropertyImage {
	img := PropertyImage{
		ID:         si.ID,
		PropertyID: si.PropertyID,
		URL:        si.URL,
		IsPrimary:  si.IsPrimary,
		Order:      si.SortOrder,
		CreatedAt:  si.CreatedAt,
	}
	if si.Caption != nil {
		img.Caption = *si.Caption
	}
	return img
}

func imageRow(img PropertyImage) map[string]any {
	return map[string]any{
		"id":          img.ID,
		"property_id": img.PropertyID,
		"url":         img.URL,
		"is_primary":  img.IsPrimary,
		"caption":     img.Caption,
		"sort_order":  img.Order,
		"created_at":  img.CreatedAt,
	}
}

type supabaseProperty struct {
	Property
	PropertyImages []supabaseImage `json:"property_images"`
}

func decodeProperties(data []byte) ([]*Property, error) {
	var rows []supabaseProperty
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error unmarshaling properties: %w", err)
	}
	props := make([]*Property, 0, len(rows))
	for i := range rows {
		p := rows[i].Property
		p.Images = make([]PropertyImage, 0, len(rows[i].PropertyImages))
		for _, si := range rows[i].PropertyImages {
			p.Images = append(p.Images, si.image())
		}
		p.SortImages()
		props = append(props, &p)
	}
	return props, nil
}

// supabaseError maps PostgREST error codes onto repository sentinels.
func supabaseError(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "("+pgUniqueViolation+")"):
		return fmt.Errorf("%s: %w: %s", op, ErrAlreadyExists, msg)
	case strings.HasPrefix(msg, "("+pgForeignKeyViolation+")"), strings.HasPrefix(msg, "(22P02)"):
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidInput, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// LogicTree renders a descriptor's predicates and text search as one
// PostgREST "and" expression body, or "" when there is nothing to filter.
// PostgREST keys simple filters by column, so two bounds on the same column
// can only be expressed this way.
func LogicTree(d query.Descriptor) string {
	var parts []string
	for _, p := range d.Predicates {
		if !propertyColumns[p.Field] {
			continue
		}
		switch p.Op {
		case query.OpILike:
			parts = append(parts, fmt.Sprintf("%s.ilike.%s", p.Field, quoteValue("*"+fmt.Sprint(p.Value)+"*")))
		case query.OpEq, query.OpNeq, query.OpGte, query.OpLte:
			parts = append(parts, fmt.Sprintf("%s.%s.%s", p.Field, p.Op, formatValue(p.Value)))
		}
	}
	if d.Search != nil && d.Search.Term != "" {
		var ors []string
		for _, f := range d.Search.Fields {
			if propertyColumns[f] {
				ors = append(ors, fmt.Sprintf("%s.ilike.%s", f, quoteValue("*"+d.Search.Term+"*")))
			}
		}
		if len(ors) > 0 {
			parts = append(parts, "or("+strings.Join(ors, ",")+")")
		}
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return quoteValue(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return quoteValue(x.UTC().Format(time.RFC3339Nano))
	}
	return quoteValue(fmt.Sprint(v))
}

func quoteValue(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func (su *SupabaseRepo) ListProperties(ctx context.Context, d query.Descriptor) ([]*Property, int, error) {
	fb := su.supabaseClient.From(PropertiesTable).Select(propertySelect, "exact", false)
	if tree := LogicTree(d); tree != "" {
		fb = fb.And(tree, "")
	}
	sortField := d.Sort.Field
	if !propertyColumns[sortField] {
		sortField = query.FieldCreatedAt
	}
	offset := d.Page.Offset()
	data, count, err := fb.
		Order(sortField, &postgrest.OrderOpts{Ascending: !d.Sort.Desc, NullsFirst: d.Sort.Desc}).
		Order(query.FieldID, &postgrest.OrderOpts{Ascending: true}).
		Range(offset, offset+d.Page.Limit-1, "").
		Execute()
	if err != nil {
		return nil, 0, supabaseError("list properties", err)
	}
	props, err := decodeProperties(data)
	if err != nil {
		return nil, 0, err
	}
	return props, int(count), nil
}

func (su *SupabaseRepo) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	data, _, err := su.supabaseClient.From(PropertiesTable).
		Select(propertySelect, "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, supabaseError("get property", err)
	}
	props, err := decodeProperties(data)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("get property: %w", ErrNotFound)
	}
	return props[0], nil
}

// CreateProperty inserts the property, then its images. PostgREST has no
// multi-request transaction, so a failed image insert removes the property.
func (su *SupabaseRepo) CreateProperty(ctx context.Context, p *Property) (*Property, error) {
	p.prepare()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, _, err := su.supabaseClient.From(PropertiesTable).
		Insert(p.Columns(), false, "", "minimal", "").
		Execute()
	if err != nil {
		return nil, supabaseError("create property", err)
	}

	if len(p.Images) > 0 {
		if _, err := su.insertImages(p.ID, p.Images); err != nil {
			_, _, _ = su.supabaseClient.From(PropertiesTable).Delete("minimal", "").Eq("id", p.ID.String()).Execute()
			return nil, err
		}
	}
	return su.GetProperty(ctx, p.ID)
}

func (su *SupabaseRepo) insertImages(propertyID uuid.UUID, images []PropertyImage) ([]PropertyImage, error) {
	rows := make([]map[string]any, 0, len(images))
	now := time.Now().UTC()
	for i := range images {
		if images[i].ID == uuid.Nil {
			images[i].ID = uuid.New()
		}
		images[i].PropertyID = propertyID
		if images[i].CreatedAt.IsZero() {
			images[i].CreatedAt = now
		}
		rows = append(rows, imageRow(images[i]))
	}
	_, _, err := su.supabaseClient.From(PropertyImagesTable).
		Insert(rows, false, "", "minimal", "").
		Execute()
	if err != nil {
		return nil, supabaseError("insert images", err)
	}
	return images, nil
}

func (su *SupabaseRepo) UpdateProperty(ctx context.Context, p *Property) (*Property, error) {
	cols := p.Columns()
	for _, k := range []string{"id", query.FieldAgentID, query.FieldCreatedAt, "view_count"} {
		delete(cols, k)
	}
	cols[query.FieldUpdatedAt] = time.Now().UTC()

	data, _, err := su.supabaseClient.From(PropertiesTable).
		Update(cols, "representation", "").
		Eq("id", p.ID.String()).
		Execute()
	if err != nil {
		return nil, supabaseError("update property", err)
	}
	if isEmptyResult(data) {
		return nil, fmt.Errorf("update property: %w", ErrNotFound)
	}
	return su.GetProperty(ctx, p.ID)
}

func (su *SupabaseRepo) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	data, _, err := su.supabaseClient.From(PropertiesTable).
		Update(map[string]any{"status": StatusDeleted, "updated_at": time.Now().UTC()}, "representation", "").
		Eq("id", id.String()).
		Neq("status", StatusDeleted).
		Execute()
	if err != nil {
		return supabaseError("delete property", err)
	}
	if isEmptyResult(data) {
		return fmt.Errorf("delete property: %w", ErrNotFound)
	}
	return nil
}

func (su *SupabaseRepo) AddImages(ctx context.Context, propertyID uuid.UUID, images []PropertyImage) ([]PropertyImage, error) {
	if len(images) == 0 {
		return []PropertyImage{}, nil
	}
	if hasPrimary(images) {
		_, _, err := su.supabaseClient.From(PropertyImagesTable).
			Update(map[string]any{"is_primary": false}, "minimal", "").
			Eq("property_id", propertyID.String()).
			Execute()
		if err != nil {
			return nil, supabaseError("clear primary image", err)
		}
	}
	return su.insertImages(propertyID, images)
}

func (su *SupabaseRepo) DeleteImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	data, _, err := su.supabaseClient.From(PropertyImagesTable).
		Delete("representation", "").
		Eq("id", imageID.String()).
		Eq("property_id", propertyID.String()).
		Execute()
	if err != nil {
		return supabaseError("delete image", err)
	}
	if isEmptyResult(data) {
		return fmt.Errorf("delete image: %w", ErrNotFound)
	}
	return nil
}

func (su *SupabaseRepo) SetPrimaryImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	data, _, err := su.supabaseClient.From(PropertyImagesTable).
		Update(map[string]any{"is_primary": true}, "representation", "").
		Eq("id", imageID.String()).
		Eq("property_id", propertyID.String()).
		Execute()
	if err != nil {
		return supabaseError("set primary image", err)
	}
	if isEmptyResult(data) {
		return fmt.Errorf("set primary image: %w", ErrNotFound)
	}
	_, _, err = su.supabaseClient.From(PropertyImagesTable).
		Update(map[string]any{"is_primary": false}, "minimal", "").
		Eq("property_id", propertyID.String()).
		Neq("id", imageID.String()).
		Execute()
	if err != nil {
		return supabaseError("clear primary image", err)
	}
	return nil
}

// IncrementViewCount is a read-modify-write; concurrent views may be lost.
func (su *SupabaseRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	data, _, err := su.supabaseClient.From(PropertiesTable).
		Select("view_count", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return supabaseError("read view count", err)
	}
	var rows []struct {
		ViewCount int64 `json:"view_count"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("error unmarshaling view count: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("increment view count: %w", ErrNotFound)
	}
	_, _, err = su.supabaseClient.From(PropertiesTable).
		Update(map[string]any{"view_count": rows[0].ViewCount + 1}, "minimal", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return supabaseError("increment view count", err)
	}
	return nil
}

// CitySuggestions walks the city column in order. PostgREST has no
// DISTINCT, so each batch resumes after the last city already seen.
func (su *SupabaseRepo) CitySuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = query.SanitizeTerm(prefix)
	cities := make([]string, 0, limit)
	if prefix == "" || limit <= 0 {
		return cities, nil
	}
	batch := max(limit*5, 50)
	seen := make(map[string]bool)
	last := ""

	for len(cities) < limit {
		q := su.supabaseClient.From(PropertiesTable).
			Select(query.FieldCity, "", false).
			Ilike(query.FieldCity, prefix+"*").
			Neq(query.FieldStatus, StatusDeleted)
		if last != "" {
			// Gt on city would replace the ilike filter above
			q = q.And(query.FieldCity+".gt."+quoteValue(last), "")
		}
		data, _, err := q.
			Order(query.FieldCity, &postgrest.OrderOpts{Ascending: true}).
			Limit(batch, "").
			Execute()
		if err != nil {
			return nil, supabaseError("city suggestions", err)
		}
		var rows []struct {
			City string `json:"city"`
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("error unmarshaling cities: %w", err)
		}
		for _, r := range rows {
			key := strings.ToLower(r.City)
			if r.City == "" || seen[key] {
				continue
			}
			seen[key] = true
			cities = append(cities, r.City)
			if len(cities) == limit {
				break
			}
		}
		if len(rows) < batch {
			break
		}
		last = rows[len(rows)-1].City
	}
	return cities, nil
}

func isEmptyResult(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "[]"
}
