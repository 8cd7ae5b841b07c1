package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/pkg/models"
)

// DatabaseQuerier is the slice of pgxpool.Pool the store needs. pgxmock
// satisfies it in tests.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrSimilarityNotFound is returned when no persisted similarity row exists
// for a product.
var ErrSimilarityNotFound = errors.New("similarity record not found")

// Store is the PostgreSQL-backed implementation of the data access
// interfaces.
type Store struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewStore(db DatabaseQuerier, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const interactionColumns = `user_id, product_id, action, count, created_at, updated_at`

func (s *Store) AllInteractions(ctx context.Context) ([]models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions ORDER BY created_at`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (s *Store) UserInteractions(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE user_id = $1 ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (s *Store) RecentUserInteractions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (s *Store) TrendingCounts(ctx context.Context, since time.Time, limit int) ([]ProductCount, error) {
	query := `SELECT product_id, SUM(count)::float8 AS total
		FROM interactions
		WHERE created_at >= $1
		GROUP BY product_id
		ORDER BY total DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending counts: %w", err)
	}
	defer rows.Close()

	var counts []ProductCount
	for rows.Next() {
		var c ProductCount
		if err := rows.Scan(&c.ProductID, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan trending count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *Store) UpsertInteraction(ctx context.Context, event models.InteractionEvent) error {
	query := `INSERT INTO interactions (user_id, product_id, action, count, created_at, updated_at)
		VALUES ($1, $2, $3, 1, NOW(), NOW())
		ON CONFLICT (user_id, product_id, action)
		DO UPDATE SET count = interactions.count + 1, updated_at = NOW()`

	if _, err := s.db.Exec(ctx, query, event.UserID, event.ProductID, event.Action); err != nil {
		return fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return nil
}

const productColumns = `p.id, p.name, p.description, p.category_id, c.name,
		p.brand_id, COALESCE(b.name, ''), p.price, p.is_available, p.is_featured, p.created_at`

const productJoins = `FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id`

func (s *Store) AvailableProducts(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE p.is_available = true
		ORDER BY p.created_at, p.id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query available products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE p.is_available = true AND p.is_featured = true
		ORDER BY p.created_at, p.id
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query featured products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE p.id = ANY($1)`

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by ids: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (s *Store) CreateRecommendation(ctx context.Context, rec *models.Recommendation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO recommendations (id, user_id, method, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.UserID, rec.Method, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}

	for _, item := range rec.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO recommendation_items (recommendation_id, product_id, score, position)
			VALUES ($1, $2, $3, $4)`,
			rec.ID, item.ProductID, item.Score, item.Position)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recommendation: %w", err)
	}
	return nil
}

func (s *Store) LatestRecommendation(ctx context.Context, userID uuid.UUID, method models.Method) (*models.Recommendation, error) {
	rec := &models.Recommendation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, method, created_at FROM recommendations
		WHERE user_id = $1 AND method = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, method).Scan(&rec.ID, &rec.UserID, &rec.Method, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest recommendation: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT product_id, score, position FROM recommendation_items
		WHERE recommendation_id = $1
		ORDER BY position`,
		rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.RecommendationItem
		if err := rows.Scan(&item.ProductID, &item.Score, &item.Position); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation item: %w", err)
		}
		rec.Items = append(rec.Items, item)
	}
	return rec, rows.Err()
}

func (s *Store) SaveSimilarityRun(ctx context.Context, run models.SimilarityRun, records []models.SimilarityRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO similarity_runs (id, product_ids, created_at) VALUES ($1, $2, $3)`,
		run.ID, run.ProductIDs, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert similarity run: %w", err)
	}

	for _, record := range records {
		_, err = tx.Exec(ctx,
			`INSERT INTO similarity_records (product_id, run_id, vector, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id)
			DO UPDATE SET run_id = EXCLUDED.run_id, vector = EXCLUDED.vector, updated_at = EXCLUDED.updated_at`,
			record.ProductID, record.RunID, record.Vector, record.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert similarity record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit similarity run: %w", err)
	}
	return nil
}

func (s *Store) SimilarityForProduct(ctx context.Context, productID uuid.UUID) (*models.SimilarityRecord, *models.SimilarityRun, error) {
	record := &models.SimilarityRecord{}
	run := &models.SimilarityRun{}

	err := s.db.QueryRow(ctx,
		`SELECT sr.product_id, sr.run_id, sr.vector, sr.updated_at, r.id, r.product_ids, r.created_at
		FROM similarity_records sr
		JOIN similarity_runs r ON r.id = sr.run_id
		WHERE sr.product_id = $1`,
		productID).Scan(
		&record.ProductID, &record.RunID, &record.Vector, &record.UpdatedAt,
		&run.ID, &run.ProductIDs, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSimilarityNotFound
		}
		return nil, nil, fmt.Errorf("failed to query similarity record: %w", err)
	}

	return record, run, nil
}

func scanInteractions(rows pgx.Rows) ([]models.Interaction, error) {
	var interactions []models.Interaction
	for rows.Next() {
		var i models.Interaction
		if err := rows.Scan(&i.UserID, &i.ProductID, &i.Action, &i.Count, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	return interactions, rows.Err()
}

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
			&p.BrandID, &p.BrandName, &p.Price, &p.IsAvailable, &p.IsFeatured, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
