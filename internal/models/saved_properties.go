package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm/clause"
)

const SavedColName = "saved_properties"

type SavedItem struct {
	PropertyID  uuid.UUID `bson:"-" json:"property_id"`
	PropertyKey string    `bson:"property_id" json:"-"`
	Note        string    `bson:"note,omitempty" json:"note,omitempty"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

// SavedList is one document per user, items keyed by property id.
type SavedList struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    string               `bson:"user_id" json:"user_id" validate:"required"`
	Items     map[string]SavedItem `bson:"items" json:"items"`
	CreatedAt time.Time            `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time            `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

type SavedRepo interface {
	SaveProperty(ctx context.Context, userID, propertyID uuid.UUID, note string) (*SavedItem, error)
	UnsaveProperty(ctx context.Context, userID, propertyID uuid.UUID) error
	ListSaved(ctx context.Context, userID uuid.UUID) ([]SavedItem, error)
}

var (
	_ SavedRepo = (*MongodbRepo)(nil)
	_ SavedRepo = (*GormRepo)(nil)
	_ SavedRepo = (*MemoryRepo)(nil)
)

func sortSavedNewestFirst(items []SavedItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.After(items[j].AddedAt)
		}
		return items[i].PropertyID.String() < items[j].PropertyID.String()
	})
}

func (mdb *MongodbRepo) SaveProperty(ctx context.Context, userID, propertyID uuid.UUID, note string) (*SavedItem, error) {
	col, err := mdb.GetCollection(ctx, SavedColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	now := time.Now().UTC()
	item := SavedItem{PropertyID: propertyID, PropertyKey: propertyID.String(), Note: note, AddedAt: now}

	update := bson.M{
		"$set": bson.M{
			"updated_at": now,
			fmt.Sprintf("items.%s", item.PropertyKey): item,
		},
		"$setOnInsert": bson.M{
			"user_id":    userID.String(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result SavedList
	err = col.FindOneAndUpdate(ctx, bson.M{"user_id": userID.String()}, update, opts).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("error upserting saved property: %w", err)
	}
	return &item, nil
}

func (mdb *MongodbRepo) UnsaveProperty(ctx context.Context, userID, propertyID uuid.UUID) error {
	col, err := mdb.GetCollection(ctx, SavedColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	key := fmt.Sprintf("items.%s", propertyID.String())
	filter := bson.M{"user_id": userID.String(), key: bson.M{"$exists": true}}
	update := bson.M{
		"$unset": bson.M{key: ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error removing saved property: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("unsave property: %w", ErrNotFound)
	}
	return nil
}

func (mdb *MongodbRepo) ListSaved(ctx context.Context, userID uuid.UUID) ([]SavedItem, error) {
	col, err := mdb.GetCollection(ctx, SavedColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var list SavedList
	err = col.FindOne(ctx, bson.M{"user_id": userID.String()}).Decode(&list)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []SavedItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding saved properties: %w", err)
	}
	items := make([]SavedItem, 0, len(list.Items))
	for key, item := range list.Items {
		id, err := uuid.Parse(key)
		if err != nil {
			continue
		}
		item.PropertyID = id
		item.PropertyKey = key
		items = append(items, item)
	}
	sortSavedNewestFirst(items)
	return items, nil
}

// savedRow is the relational form used when Mongo is not configured.
type savedRow struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Note       string
	AddedAt    time.Time `gorm:"not null"`
}

func (savedRow) TableName() string { return SavedTable }

func (g *GormRepo) SaveProperty(ctx context.Context, userID, propertyID uuid.UUID, note string) (*SavedItem, error) {
	row := savedRow{UserID: userID, PropertyID: propertyID, Note: note, AddedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "property_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "added_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, MapDBError("save property", err)
	}
	return &SavedItem{PropertyID: propertyID, PropertyKey: propertyID.String(), Note: note, AddedAt: row.AddedAt}, nil
}

func (g *GormRepo) UnsaveProperty(ctx context.Context, userID, propertyID uuid.UUID) error {
	res := g.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&savedRow{})
	if res.Error != nil {
		return MapDBError("unsave property", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unsave property: %w", ErrNotFound)
	}
	return nil
}

func (g *GormRepo) ListSaved(ctx context.Context, userID uuid.UUID) ([]SavedItem, error) {
	var rows []savedRow
	err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, MapDBError("list saved", err)
	}
	items := make([]SavedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, SavedItem{PropertyID: r.PropertyID, PropertyKey: r.PropertyID.String(), Note: r.Note, AddedAt: r.AddedAt})
	}
	return items, nil
}

func (m *MemoryRepo) SaveProperty(ctx context.Context, userID, propertyID uuid.UUID, note string) (*SavedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.saved[userID]
	if !ok {
		items = make(map[uuid.UUID]SavedItem)
		m.saved[userID] = items
	}
	item := SavedItem{PropertyID: propertyID, PropertyKey: propertyID.String(), Note: note, AddedAt: m.now()}
	items[propertyID] = item
	return &item, nil
}

func (m *MemoryRepo) UnsaveProperty(ctx context.Context, userID, propertyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saved[userID][propertyID]; !ok {
		return fmt.Errorf("unsave property: %w", ErrNotFound)
	}
	delete(m.saved[userID], propertyID)
	return nil
}

func (m *MemoryRepo) ListSaved(ctx context.Context, userID uuid.UUID) ([]SavedItem, error) {
	m.mu.RLock()
	items := make([]SavedItem, 0, len(m.saved[userID]))
	for _, item := range m.saved[userID] {
		items = append(items, item)
	}
	m.mu.RUnlock()
	sortSavedNewestFirst(items)
	return items, nil
}
