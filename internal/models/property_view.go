package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PropertyViewsColName = "property_views"

	ViewRetention   = 30 * 24 * time.Hour
	ViewDedupWindow = time.Hour
)

type PropertyView struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PropertyID string             `bson:"property_id" json:"property_id" validate:"required"`
	AgentID    string             `bson:"agent_id" json:"agent_id" validate:"required"`
	UserID     *string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	SessionID  string             `bson:"session_id" json:"session_id" validate:"required"`
	IPAddress  string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Bucket     time.Time          `bson:"bucket" json:"-"`
	ViewedAt   time.Time          `bson:"viewed_at" json:"viewed_at"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"-"`
}

type ViewStats struct {
	TotalViews    int64 `json:"total_views"`
	UniqueViews   int64 `json:"unique_views"`
	ViewsToday    int64 `json:"views_today"`
	ViewsThisWeek int64 `json:"views_this_week"`
	ViewsInWindow int64 `json:"views_in_window"`
	WindowDays    int   `json:"window_days"`
}

type PropertyViewStats struct {
	PropertyID string `json:"property_id"`
	ViewStats
}

type AgentViewStats struct {
	AgentID          string `json:"agent_id"`
	ViewedProperties int64  `json:"viewed_properties"`
	ViewStats
}

type PropertyViewsRepo interface {
	TrackPropertyView(ctx context.Context, view *PropertyView) (bool, error)
	GetPropertyViewStats(ctx context.Context, propertyID string, days int) (*PropertyViewStats, error)
	GetPropertyViewHistory(ctx context.Context, propertyID string, limit int) ([]*PropertyView, error)
	GetAgentViewStats(ctx context.Context, agentID string, days int) (*AgentViewStats, error)
	EnsureIndexes(ctx context.Context) error
}

var _ PropertyViewsRepo = (*MongodbRepo)(nil)

// EnsureIndexes creates the TTL index and the per-hour dedup index.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, PropertyViewsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "property_id", Value: 1},
				{Key: "session_id", Value: 1},
				{Key: "bucket", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("property_session_hour_unique"),
		},
		{
			Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "viewed_at", Value: -1}},
			Options: options.Index().SetName("property_viewed_at_idx"),
		},
		{
			Keys:    bson.D{{Key: "agent_id", Value: 1}, {Key: "viewed_at", Value: -1}},
			Options: options.Index().SetName("agent_viewed_at_idx"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

// TrackPropertyView records a view unless the same session already viewed
// the property within the dedup window. It reports whether a view was stored.
func (mdb *MongodbRepo) TrackPropertyView(ctx context.Context, view *PropertyView) (bool, error) {
	col, err := mdb.GetCollection(ctx, PropertyViewsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	now := time.Now().UTC()
	err = col.FindOne(ctx, bson.M{
		"property_id": view.PropertyID,
		"session_id":  view.SessionID,
		"viewed_at":   bson.M{"$gte": now.Add(-ViewDedupWindow)},
	}).Err()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("error checking recent view: %w", err)
	}

	view.ViewedAt = now
	view.Bucket = now.Truncate(ViewDedupWindow)
	view.ExpiresAt = now.Add(ViewRetention)
	if view.ID.IsZero() {
		view.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, view); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting property view: %w", err)
	}
	return true, nil
}

func (mdb *MongodbRepo) GetPropertyViewStats(ctx context.Context, propertyID string, days int) (*PropertyViewStats, error) {
	col, err := mdb.GetCollection(ctx, PropertyViewsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	stats, err := viewStats(ctx, col, bson.M{"property_id": propertyID}, days)
	if err != nil {
		return nil, err
	}
	return &PropertyViewStats{PropertyID: propertyID, ViewStats: *stats}, nil
}

func (mdb *MongodbRepo) GetAgentViewStats(ctx context.Context, agentID string, days int) (*AgentViewStats, error) {
	col, err := mdb.GetCollection(ctx, PropertyViewsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	filter := bson.M{"agent_id": agentID}
	stats, err := viewStats(ctx, col, filter, days)
	if err != nil {
		return nil, err
	}
	viewed, err := countDistinct(ctx, col, filter, "$property_id")
	if err != nil {
		return nil, fmt.Errorf("error counting viewed properties: %w", err)
	}
	return &AgentViewStats{AgentID: agentID, ViewedProperties: viewed, ViewStats: *stats}, nil
}

func (mdb *MongodbRepo) GetPropertyViewHistory(ctx context.Context, propertyID string, limit int) ([]*PropertyView, error) {
	col, err := mdb.GetCollection(ctx, PropertyViewsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "viewed_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding property views: %w", err)
	}
	defer cursor.Close(ctx)

	views := []*PropertyView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("error decoding property views: %w", err)
	}
	return views, nil
}

func viewStats(ctx context.Context, col *mongo.Collection, filter bson.M, days int) (*ViewStats, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfWeek := startOfDay.AddDate(0, 0, -int(now.Weekday()))
	windowStart := now.AddDate(0, 0, -days)

	stats := &ViewStats{WindowDays: days}
	var err error

	if stats.TotalViews, err = col.CountDocuments(ctx, filter); err != nil {
		return nil, fmt.Errorf("error counting total views: %w", err)
	}
	if stats.UniqueViews, err = countDistinct(ctx, col, filter, "$session_id"); err != nil {
		return nil, fmt.Errorf("error aggregating unique views: %w", err)
	}
	if stats.ViewsToday, err = col.CountDocuments(ctx, since(filter, startOfDay)); err != nil {
		return nil, fmt.Errorf("error counting today's views: %w", err)
	}
	if stats.ViewsThisWeek, err = col.CountDocuments(ctx, since(filter, startOfWeek)); err != nil {
		return nil, fmt.Errorf("error counting this week's views: %w", err)
	}
	if stats.ViewsInWindow, err = col.CountDocuments(ctx, since(filter, windowStart)); err != nil {
		return nil, fmt.Errorf("error counting windowed views: %w", err)
	}
	return stats, nil
}

func since(filter bson.M, t time.Time) bson.M {
	out := bson.M{"viewed_at": bson.M{"$gte": t}}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

func countDistinct(ctx context.Context, col *mongo.Collection, filter bson.M, field string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": field}}},
		{{Key: "$count", Value: "n"}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result []bson.M
	if err := cursor.All(ctx, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	switch n := result[0]["n"].(type) {
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, nil
}
