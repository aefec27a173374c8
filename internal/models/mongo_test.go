package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testMongoDB = "homeswift_test"

func viewsNS() string { return testMongoDB + "." + PropertyViewsColName }
func savedNS() string { return testMongoDB + "." + SavedColName }

func TestMongodbRepo_TrackPropertyView(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stores first view", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, viewsNS(), mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)
		view := &PropertyView{PropertyID: "p1", AgentID: "a1", SessionID: "s1"}
		stored, err := repo.TrackPropertyView(context.Background(), view)
		require.NoError(mt, err)
		assert.True(mt, stored)
		assert.False(mt, view.ID.IsZero())
		assert.WithinDuration(mt, view.ViewedAt.Add(ViewRetention), view.ExpiresAt, time.Second)
		assert.Equal(mt, view.ViewedAt.Truncate(time.Hour), view.Bucket)
	})

	mt.Run("skips repeat view within the hour", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, viewsNS(), mtest.FirstBatch, bson.D{
			{Key: "property_id", Value: "p1"},
			{Key: "session_id", Value: "s1"},
			{Key: "viewed_at", Value: time.Now()},
		}))
		stored, err := repo.TrackPropertyView(context.Background(), &PropertyView{PropertyID: "p1", AgentID: "a1", SessionID: "s1"})
		require.NoError(mt, err)
		assert.False(mt, stored)
	})

	mt.Run("duplicate key is not an error", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, viewsNS(), mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}),
		)
		stored, err := repo.TrackPropertyView(context.Background(), &PropertyView{PropertyID: "p1", AgentID: "a1", SessionID: "s1"})
		require.NoError(mt, err)
		assert.False(mt, stored)
	})
}

func countResponse(ns string, n int32) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestMongodbRepo_GetPropertyViewStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("aggregates counts", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(
			countResponse(viewsNS(), 12),
			countResponse(viewsNS(), 5),
			countResponse(viewsNS(), 2),
			countResponse(viewsNS(), 7),
			countResponse(viewsNS(), 11),
		)
		stats, err := repo.GetPropertyViewStats(context.Background(), "p1", 0)
		require.NoError(mt, err)
		assert.Equal(mt, "p1", stats.PropertyID)
		assert.Equal(mt, int64(12), stats.TotalViews)
		assert.Equal(mt, int64(5), stats.UniqueViews)
		assert.Equal(mt, int64(2), stats.ViewsToday)
		assert.Equal(mt, int64(7), stats.ViewsThisWeek)
		assert.Equal(mt, int64(11), stats.ViewsInWindow)
		assert.Equal(mt, 30, stats.WindowDays)
	})
}

func TestMongodbRepo_GetAgentViewStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("aggregates across listings", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(
			countResponse(viewsNS(), 40),
			countResponse(viewsNS(), 18),
			countResponse(viewsNS(), 3),
			countResponse(viewsNS(), 9),
			countResponse(viewsNS(), 25),
			countResponse(viewsNS(), 4),
		)
		stats, err := repo.GetAgentViewStats(context.Background(), "a1", 14)
		require.NoError(mt, err)
		assert.Equal(mt, "a1", stats.AgentID)
		assert.Equal(mt, int64(40), stats.TotalViews)
		assert.Equal(mt, int64(18), stats.UniqueViews)
		assert.Equal(mt, int64(25), stats.ViewsInWindow)
		assert.Equal(mt, int64(4), stats.ViewedProperties)
		assert.Equal(mt, 14, stats.WindowDays)
	})

	mt.Run("no views", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		for i := 0; i < 6; i++ {
			mt.AddMockResponses(mtest.CreateCursorResponse(0, viewsNS(), mtest.FirstBatch))
		}
		stats, err := repo.GetAgentViewStats(context.Background(), "a1", 0)
		require.NoError(mt, err)
		assert.Zero(mt, stats.TotalViews)
		assert.Zero(mt, stats.ViewedProperties)
	})
}

func TestMongodbRepo_GetPropertyViewHistory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("newest first", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, viewsNS(), mtest.FirstBatch,
			bson.D{{Key: "property_id", Value: "p1"}, {Key: "session_id", Value: "s2"}, {Key: "viewed_at", Value: now}},
			bson.D{{Key: "property_id", Value: "p1"}, {Key: "session_id", Value: "s1"}, {Key: "viewed_at", Value: now.Add(-time.Hour)}},
		))
		views, err := repo.GetPropertyViewHistory(context.Background(), "p1", 10)
		require.NoError(mt, err)
		require.Len(mt, views, 2)
		assert.Equal(mt, "s2", views[0].SessionID)
		assert.True(mt, views[0].ViewedAt.Equal(now))
	})

	mt.Run("query failure", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))
		_, err := repo.GetPropertyViewHistory(context.Background(), "p1", 10)
		assert.Error(mt, err)
	})
}

func TestMongodbRepo_SavedProperties(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	userID := uuid.New()
	propertyID := uuid.New()

	mt.Run("save upserts", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "user_id", Value: userID.String()},
				{Key: "items", Value: bson.D{}},
			}},
		})
		item, err := repo.SaveProperty(context.Background(), userID, propertyID, "near school")
		require.NoError(mt, err)
		assert.Equal(mt, propertyID, item.PropertyID)
		assert.Equal(mt, "near school", item.Note)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
	})

	mt.Run("list decodes items newest first", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		older, newer := uuid.New(), uuid.New()
		now := time.Now().UTC()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, savedNS(), mtest.FirstBatch, bson.D{
			{Key: "user_id", Value: userID.String()},
			{Key: "items", Value: bson.D{
				{Key: older.String(), Value: bson.D{{Key: "property_id", Value: older.String()}, {Key: "added_at", Value: now.Add(-time.Hour)}}},
				{Key: newer.String(), Value: bson.D{{Key: "property_id", Value: newer.String()}, {Key: "added_at", Value: now}}},
				{Key: "not-a-uuid", Value: bson.D{{Key: "property_id", Value: "not-a-uuid"}, {Key: "added_at", Value: now}}},
			}},
		}))
		items, err := repo.ListSaved(context.Background(), userID)
		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, newer, items[0].PropertyID)
		assert.Equal(mt, older, items[1].PropertyID)
	})

	mt.Run("list without document is empty", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, savedNS(), mtest.FirstBatch))
		items, err := repo.ListSaved(context.Background(), userID)
		require.NoError(mt, err)
		assert.Empty(mt, items)
	})

	mt.Run("unsave missing item is not found", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, testMongoDB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		err := repo.UnsaveProperty(context.Background(), userID, propertyID)
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongodbRepo_NilClient(t *testing.T) {
	repo := MongodbNewRepo(nil, testMongoDB)
	_, err := repo.ListSaved(context.Background(), uuid.New())
	assert.Error(t, err)
}
