package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/calyptra/shoprec/pkg/models"
)

// ErrStaleSimilarity marks a persisted vector whose catalog ordering no
// longer matches the live catalog. Stale vectors are never consumed
// positionally.
var ErrStaleSimilarity = errors.New("similarity record stale for current catalog")

// ErrProductNotFound is returned when the seed product is not in the
// available catalog. It is the only SimilarProducts error the HTTP layer
// maps to 404.
var ErrProductNotFound = errors.New("product not found in catalog")

// ContentSimilarityService maintains the persisted product similarity
// cache. Recompute is a batch maintenance operation, not a per-request
// one; between runs the vectors are stale-but-valid until the catalog
// changes size.
type ContentSimilarityService struct {
	store  SimilarityDataStore
	logger *logrus.Logger
}

func NewContentSimilarityService(store SimilarityDataStore, logger *logrus.Logger) *ContentSimilarityService {
	return &ContentSimilarityService{store: store, logger: logger}
}

// Recompute builds TF-IDF feature vectors for every available product,
// computes pairwise cosine similarity, and persists one vector per product
// keyed to this run's catalog ordering.
func (s *ContentSimilarityService) Recompute(ctx context.Context) error {
	products, err := s.store.AvailableProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog for similarity recompute: %w", err)
	}
	if len(products) == 0 {
		s.logger.Info("Similarity recompute skipped: empty catalog")
		return nil
	}

	docs := make([][]string, len(products))
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		docs[i] = tokenize(p.FeatureText())
		ids[i] = p.ID
	}

	vectors := tfidfVectors(docs)

	now := time.Now().UTC()
	run := models.SimilarityRun{
		ID:         uuid.New(),
		ProductIDs: ids,
		CreatedAt:  now,
	}

	records := make([]models.SimilarityRecord, len(products))
	for i := range products {
		row := make([]float64, len(products))
		for j := range products {
			// TF-IDF rows are L2-normalized, so cosine is a plain dot.
			row[j] = floats.Dot(vectors[i], vectors[j])
		}
		records[i] = models.SimilarityRecord{
			ProductID: ids[i],
			RunID:     run.ID,
			Vector:    row,
			UpdatedAt: now,
		}
	}

	if err := s.store.SaveSimilarityRun(ctx, run, records); err != nil {
		return fmt.Errorf("failed to persist similarity run: %w", err)
	}

	similarityRecomputes.Inc()
	s.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"products": len(products),
	}).Info("Content similarity recomputed")

	return nil
}

// SimilarProducts finds products similar to the seed. The persisted TF-IDF
// vector is preferred; when it is missing or stale for the current catalog
// the live category/brand/price heuristic answers instead.
func (s *ContentSimilarityService) SimilarProducts(ctx context.Context, productID uuid.UUID, limit int) ([]models.ScoredProduct, error) {
	products, err := s.store.AvailableProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	results, err := s.similarFromVector(ctx, productID, products, limit)
	if err == nil {
		return results, nil
	}
	if !errors.Is(err, ErrStaleSimilarity) && !errors.Is(err, ErrSimilarityNotFound) {
		s.logger.WithError(err).Warn("Similarity cache lookup failed, using heuristic")
	}

	return s.heuristicSimilar(productID, products, limit)
}

// similarFromVector reads the persisted similarity row and maps its
// positional scores back to products through the run's catalog ordering.
func (s *ContentSimilarityService) similarFromVector(ctx context.Context, productID uuid.UUID, products []models.Product, limit int) ([]models.ScoredProduct, error) {
	record, run, err := s.store.SimilarityForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !record.ValidFor(*run, len(products)) {
		staleSimilarityRecords.Inc()
		s.logger.WithFields(logrus.Fields{
			"product_id":   productID,
			"vector_size":  len(record.Vector),
			"catalog_size": len(products),
		}).Warn("Rejecting stale similarity vector")
		return nil, ErrStaleSimilarity
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	results := make([]models.ScoredProduct, 0, len(record.Vector))
	for i, score := range record.Vector {
		otherID := run.ProductIDs[i]
		if otherID == productID {
			continue
		}
		product, ok := byID[otherID]
		if !ok {
			// Product left the catalog after the run; skip it.
			continue
		}
		if score > 0 {
			results = append(results, models.ScoredProduct{Product: product, Score: score})
		}
	}

	sortScoredDesc(results)
	return truncateScored(results, limit), nil
}

// heuristicSimilar scores every other available product against the seed
// with the category/brand/price affinity heuristic.
func (s *ContentSimilarityService) heuristicSimilar(productID uuid.UUID, products []models.Product, limit int) ([]models.ScoredProduct, error) {
	var seed *models.Product
	for i := range products {
		if products[i].ID == productID {
			seed = &products[i]
			break
		}
	}
	if seed == nil {
		return nil, fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
	}

	var results []models.ScoredProduct
	for _, other := range products {
		if other.ID == productID {
			continue
		}
		if score := productAffinity(other, *seed); score > 0 {
			results = append(results, models.ScoredProduct{Product: other, Score: score})
		}
	}

	sortScoredDesc(results)
	return truncateScored(results, limit), nil
}

// --- TF-IDF ---

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// tokenize lowercases, strips diacritics, splits on non-alphanumerics and
// drops stop words and single characters.
func tokenize(text string) []string {
	if cleaned, _, err := transform.String(deaccent, text); err == nil {
		text = cleaned
	}
	text = strings.ToLower(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// tfidfVectors computes smoothed TF-IDF vectors over the corpus
// vocabulary, one L2-normalized row per document. Vocabulary order is
// first-seen order, stable within one call.
func tfidfVectors(docs [][]string) [][]float64 {
	vocab := make(map[string]int)
	df := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range doc {
			if _, ok := vocab[term]; !ok {
				vocab[term] = len(vocab)
			}
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for term, idx := range vocab {
		// Smoothed IDF keeps terms present in every document from
		// zeroing out.
		idf[idx] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([][]float64, len(docs))
	for i, doc := range docs {
		vec := make([]float64, len(vocab))
		for _, term := range doc {
			vec[vocab[term]] += 1
		}
		for idx := range vec {
			vec[idx] *= idf[idx]
		}
		if norm2 := floats.Norm(vec, 2); norm2 > 0 {
			floats.Scale(1/norm2, vec)
		}
		vectors[i] = vec
	}
	return vectors
}

// English stop words filtered out of feature text before vectorization.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},
	"each": {}, "few": {}, "for": {}, "from": {}, "further": {}, "had": {},
	"has": {}, "have": {}, "having": {}, "he": {}, "her": {}, "here": {},
	"hers": {}, "him": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "just": {}, "me": {}, "more": {},
	"most": {}, "my": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "of": {},
	"off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "ours": {}, "out": {}, "over": {}, "own": {}, "same": {},
	"she": {}, "should": {}, "so": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "theirs": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {}, "up": {},
	"very": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "who": {}, "whom": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "yours": {},
}
