package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/shoprec/pkg/models"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewStore(mockDB, logger), mockDB
}

func TestStore_UserInteractions(t *testing.T) {
	store, mockDB := newMockStore(t)

	userID := uuid.New()
	productID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"user_id", "product_id", "action", "count", "created_at", "updated_at"}).
		AddRow(userID, productID, models.ActionPurchase, 2, now, now)

	mockDB.ExpectQuery("SELECT user_id, product_id, action, count").
		WithArgs(userID).
		WillReturnRows(rows)

	interactions, err := store.UserInteractions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, productID, interactions[0].ProductID)
	assert.Equal(t, models.ActionPurchase, interactions[0].Action)
	assert.Equal(t, 2, interactions[0].Count)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_TrendingCounts(t *testing.T) {
	store, mockDB := newMockStore(t)

	p1 := uuid.New()
	p2 := uuid.New()
	since := time.Now().Add(-30 * 24 * time.Hour)

	rows := pgxmock.NewRows([]string{"product_id", "total"}).
		AddRow(p1, 30.0).
		AddRow(p2, 12.0)

	mockDB.ExpectQuery("SELECT product_id, SUM").
		WithArgs(since, 10).
		WillReturnRows(rows)

	counts, err := store.TrendingCounts(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, p1, counts[0].ProductID)
	assert.Equal(t, 30.0, counts[0].Total)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_UpsertInteraction(t *testing.T) {
	store, mockDB := newMockStore(t)

	event := models.InteractionEvent{
		UserID:    uuid.New(),
		ProductID: uuid.New(),
		Action:    models.ActionCart,
	}

	mockDB.ExpectExec("INSERT INTO interactions").
		WithArgs(event.UserID, event.ProductID, event.Action).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertInteraction(context.Background(), event))
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_AvailableProducts(t *testing.T) {
	store, mockDB := newMockStore(t)

	id := uuid.New()
	categoryID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "name", "description", "category_id", "category_name",
		"brand_id", "brand_name", "price", "is_available", "is_featured", "created_at",
	}).AddRow(id, "Wireless Mouse", "ergonomic", categoryID, "Electronics",
		(*uuid.UUID)(nil), "", 29.99, true, false, now)

	mockDB.ExpectQuery("SELECT p.id, p.name").
		WillReturnRows(rows)

	products, err := store.AvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Wireless Mouse", products[0].Name)
	assert.Equal(t, "Electronics", products[0].CategoryName)
	assert.Nil(t, products[0].BrandID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_ProductsByIDs(t *testing.T) {
	store, mockDB := newMockStore(t)

	t.Run("empty id list skips the query", func(t *testing.T) {
		products, err := store.ProductsByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("maps rows by id", func(t *testing.T) {
		id := uuid.New()
		categoryID := uuid.New()
		brandID := uuid.New()
		now := time.Now()

		rows := pgxmock.NewRows([]string{
			"id", "name", "description", "category_id", "category_name",
			"brand_id", "brand_name", "price", "is_available", "is_featured", "created_at",
		}).AddRow(id, "Keyboard", "", categoryID, "Electronics",
			&brandID, "Clacky", 79.0, true, true, now)

		mockDB.ExpectQuery("SELECT p.id, p.name").
			WithArgs([]uuid.UUID{id}).
			WillReturnRows(rows)

		products, err := store.ProductsByIDs(context.Background(), []uuid.UUID{id})
		require.NoError(t, err)
		require.Contains(t, products, id)
		assert.Equal(t, "Clacky", products[id].BrandName)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_CreateRecommendation(t *testing.T) {
	store, mockDB := newMockStore(t)

	rec := &models.Recommendation{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Method:    models.MethodHybrid,
		CreatedAt: time.Now().UTC(),
		Items: []models.RecommendationItem{
			{ProductID: uuid.New(), Score: 2.5, Position: 1},
			{ProductID: uuid.New(), Score: 1.0, Position: 2},
		},
	}

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO recommendations").
		WithArgs(rec.ID, rec.UserID, rec.Method, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, item := range rec.Items {
		mockDB.ExpectExec("INSERT INTO recommendation_items").
			WithArgs(rec.ID, item.ProductID, item.Score, item.Position).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mockDB.ExpectCommit()

	require.NoError(t, store.CreateRecommendation(context.Background(), rec))
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_LatestRecommendation(t *testing.T) {
	store, mockDB := newMockStore(t)

	t.Run("no rows means no recommendation, not an error", func(t *testing.T) {
		userID := uuid.New()

		mockDB.ExpectQuery("SELECT id, user_id, method, created_at FROM recommendations").
			WithArgs(userID, models.MethodHybrid).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "method", "created_at"}))

		rec, err := store.LatestRecommendation(context.Background(), userID, models.MethodHybrid)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("loads items ordered by position", func(t *testing.T) {
		userID := uuid.New()
		recID := uuid.New()
		p1 := uuid.New()
		p2 := uuid.New()
		now := time.Now()

		mockDB.ExpectQuery("SELECT id, user_id, method, created_at FROM recommendations").
			WithArgs(userID, models.MethodTrending).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "method", "created_at"}).
				AddRow(recID, userID, models.MethodTrending, now))

		mockDB.ExpectQuery("SELECT product_id, score, position FROM recommendation_items").
			WithArgs(recID).
			WillReturnRows(pgxmock.NewRows([]string{"product_id", "score", "position"}).
				AddRow(p1, 3.0, 1).
				AddRow(p2, 1.5, 2))

		rec, err := store.LatestRecommendation(context.Background(), userID, models.MethodTrending)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, recID, rec.ID)
		require.Len(t, rec.Items, 2)
		assert.Equal(t, p1, rec.Items[0].ProductID)
		assert.Equal(t, 1, rec.Items[0].Position)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_SaveSimilarityRun(t *testing.T) {
	store, mockDB := newMockStore(t)

	now := time.Now().UTC()
	p1 := uuid.New()
	p2 := uuid.New()
	run := models.SimilarityRun{
		ID:         uuid.New(),
		ProductIDs: []uuid.UUID{p1, p2},
		CreatedAt:  now,
	}
	records := []models.SimilarityRecord{
		{ProductID: p1, RunID: run.ID, Vector: []float64{1, 0.4}, UpdatedAt: now},
		{ProductID: p2, RunID: run.ID, Vector: []float64{0.4, 1}, UpdatedAt: now},
	}

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO similarity_runs").
		WithArgs(run.ID, run.ProductIDs, run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, record := range records {
		mockDB.ExpectExec("INSERT INTO similarity_records").
			WithArgs(record.ProductID, record.RunID, record.Vector, record.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mockDB.ExpectCommit()

	require.NoError(t, store.SaveSimilarityRun(context.Background(), run, records))
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_SimilarityForProduct(t *testing.T) {
	store, mockDB := newMockStore(t)

	t.Run("joins the record with its run", func(t *testing.T) {
		productID := uuid.New()
		runID := uuid.New()
		now := time.Now()
		ordering := []uuid.UUID{productID, uuid.New()}

		mockDB.ExpectQuery("SELECT sr.product_id, sr.run_id").
			WithArgs(productID).
			WillReturnRows(pgxmock.NewRows([]string{
				"product_id", "run_id", "vector", "updated_at", "id", "product_ids", "created_at",
			}).AddRow(productID, runID, []float64{1, 0.2}, now, runID, ordering, now))

		record, run, err := store.SimilarityForProduct(context.Background(), productID)
		require.NoError(t, err)
		assert.Equal(t, runID, record.RunID)
		assert.Equal(t, ordering, run.ProductIDs)
	})

	t.Run("missing row maps to ErrSimilarityNotFound", func(t *testing.T) {
		productID := uuid.New()

		mockDB.ExpectQuery("SELECT sr.product_id, sr.run_id").
			WithArgs(productID).
			WillReturnRows(pgxmock.NewRows([]string{
				"product_id", "run_id", "vector", "updated_at", "id", "product_ids", "created_at",
			}))

		_, _, err := store.SimilarityForProduct(context.Background(), productID)
		assert.ErrorIs(t, err, ErrSimilarityNotFound)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}
