package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joshua-takyi/homeswift/internal/query"
)

var propertyColumns = map[string]bool{}

func init() {
	for col := range (&Property{}).Columns() {
		propertyColumns[col] = true
	}
}

// FilterScope translates predicates and text search into WHERE clauses.
// Predicates on unknown columns are ignored.
func FilterScope(d query.Descriptor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, p := range d.Predicates {
			if !propertyColumns[p.Field] {
				continue
			}
			col := clause.Column{Name: p.Field}
			switch p.Op {
			case query.OpEq:
				db = db.Where(clause.Eq{Column: col, Value: p.Value})
			case query.OpNeq:
				db = db.Where(clause.Neq{Column: col, Value: p.Value})
			case query.OpGte:
				db = db.Where(clause.Gte{Column: col, Value: p.Value})
			case query.OpLte:
				db = db.Where(clause.Lte{Column: col, Value: p.Value})
			case query.OpILike:
				db = db.Where(ilike(p.Field, fmt.Sprint(p.Value)))
			}
		}
		if d.Search != nil && d.Search.Term != "" {
			exprs := make([]clause.Expression, 0, len(d.Search.Fields))
			for _, f := range d.Search.Fields {
				if propertyColumns[f] {
					exprs = append(exprs, ilike(f, d.Search.Term))
				}
			}
			switch len(exprs) {
			case 0:
			case 1:
				db = db.Where(exprs[0])
			default:
				db = db.Where(clause.Or(exprs...))
			}
		}
		return db
	}
}

func ilike(field, term string) clause.Expression {
	return clause.Expr{SQL: "? ILIKE ?", Vars: []interface{}{clause.Column{Name: field}, "%" + term + "%"}}
}

// SortScope orders by the requested column with id as tie-breaker.
func SortScope(s query.Sort) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field := s.Field
		if !propertyColumns[field] {
			field = query.FieldCreatedAt
		}
		return db.
			Order(clause.OrderByColumn{Column: clause.Column{Name: field}, Desc: s.Desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: query.FieldID}})
	}
}

func PageScope(p query.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}

func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

func (g *GormRepo) ListProperties(ctx context.Context, d query.Descriptor) ([]*Property, int, error) {
	var total int64
	if err := g.db.WithContext(ctx).Model(&Property{}).Scopes(FilterScope(d)).Count(&total).Error; err != nil {
		return nil, 0, MapDBError("count properties", err)
	}
	if total == 0 {
		return []*Property{}, 0, nil
	}

	var props []*Property
	err := g.db.WithContext(ctx).
		Scopes(FilterScope(d), SortScope(d.Sort), PageScope(d.Page)).
		Preload("Images", preloadImages).
		Find(&props).Error
	if err != nil {
		return nil, 0, MapDBError("list properties", err)
	}
	return props, int(total), nil
}

func (g *GormRepo) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	var p Property
	err := g.db.WithContext(ctx).Preload("Images", preloadImages).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, MapDBError("get property", err)
	}
	return &p, nil
}

// CreateProperty inserts the property and its images in one transaction.
func (g *GormRepo) CreateProperty(ctx context.Context, p *Property) (*Property, error) {
	p.prepare()
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, MapDBError("create property", err)
	}
	p.SortImages()
	return p, nil
}

func (g *GormRepo) UpdateProperty(ctx context.Context, p *Property) (*Property, error) {
	res := g.db.WithContext(ctx).Model(&Property{ID: p.ID}).
		Select("*").
		Omit("id", "agent_id", "created_at", "view_count", clause.Associations).
		Updates(p)
	if res.Error != nil {
		return nil, MapDBError("update property", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update property: %w", ErrNotFound)
	}
	return g.GetProperty(ctx, p.ID)
}

// DeleteProperty flips the status to deleted. Rows are never removed.
func (g *GormRepo) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	res := g.db.WithContext(ctx).Model(&Property{}).
		Where("id = ? AND status <> ?", id, StatusDeleted).
		Update("status", StatusDeleted)
	if res.Error != nil {
		return MapDBError("delete property", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete property: %w", ErrNotFound)
	}
	return nil
}

func (g *GormRepo) AddImages(ctx context.Context, propertyID uuid.UUID, images []PropertyImage) ([]PropertyImage, error) {
	if len(images) == 0 {
		return []PropertyImage{}, nil
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range images {
			images[i].PropertyID = propertyID
		}
		if hasPrimary(images) {
			if err := tx.Model(&PropertyImage{}).
				Where("property_id = ?", propertyID).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		return nil, MapDBError("add images", err)
	}
	return images, nil
}

func (g *GormRepo) DeleteImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	res := g.db.WithContext(ctx).
		Where("id = ? AND property_id = ?", imageID, propertyID).
		Delete(&PropertyImage{})
	if res.Error != nil {
		return MapDBError("delete image", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete image: %w", ErrNotFound)
	}
	return nil
}

// SetPrimaryImage marks one image primary and clears the flag on its siblings.
func (g *GormRepo) SetPrimaryImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PropertyImage{}).
			Where("id = ? AND property_id = ?", imageID, propertyID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&PropertyImage{}).
			Where("property_id = ? AND id <> ?", propertyID, imageID).
			Update("is_primary", false).Error
	})
	return MapDBError("set primary image", err)
}

func (g *GormRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	err := g.db.WithContext(ctx).Model(&Property{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	return MapDBError("increment view count", err)
}

func (g *GormRepo) CitySuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = query.SanitizeTerm(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	var cities []string
	err := g.db.WithContext(ctx).Model(&Property{}).
		Distinct("city").
		Where("city ILIKE ? AND status <> ?", prefix+"%", StatusDeleted).
		Order("city").
		Limit(limit).
		Pluck("city", &cities).Error
	if err != nil {
		return nil, MapDBError("city suggestions", err)
	}
	return cities, nil
}

func hasPrimary(images []PropertyImage) bool {
	for _, img := range images {
		if img.IsPrimary {
			return true
		}
	}
	return false
}
