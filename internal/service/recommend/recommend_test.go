package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/config"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/vectorstore"
)

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{0.1, 0.2}, nil
}

type fakeVectors struct {
	upserts  map[string][]uint64
	searched []uint64
}

func (f *fakeVectors) Upsert(ctx context.Context, collection string, id uint64, vector []float64, payload map[string]any) error {
	if f.upserts == nil {
		f.upserts = map[string][]uint64{}
	}
	f.upserts[collection] = append(f.upserts[collection], id)
	return nil
}

func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float64, limit int) ([]vectorstore.ScoredPoint, error) {
	out := make([]vectorstore.ScoredPoint, len(f.searched))
	for i, id := range f.searched {
		out[i] = vectorstore.ScoredPoint{ID: id, Score: 0.9}
	}
	return out, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func seedReviewer(t *testing.T, db *gorm.DB) models.User {
	user := models.User{Name: "reader", Email: "reader@example.com"}
	require.NoError(t, db.Create(&user).Error)

	book := models.Book{Title: "Walden", Author: "Thoreau", Visible: true, Condition: "Good"}
	require.NoError(t, db.Create(&book).Error)
	require.NoError(t, db.Create(&models.Review{UserID: user.ID, BookID: book.ID, Status: models.ReviewLike}).Error)
	return user
}

const modelReply = "```json\n" +
	`[{"title": "The Maine Woods", "author": "Thoreau", "isbn": "9780000000002", "price": 8.5, "description": "travel essays"}]` +
	"\n```"

func TestGenerateCreatesInvisibleBookAndLedger(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	gen := &fakeGenerator{reply: modelReply}
	svc := &Service{DB: db, AI: gen}

	recs, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 1, gen.calls)
	require.Contains(t, gen.prompts[0], "Walden by Thoreau")

	var book models.Book
	require.NoError(t, db.Where("title = ?", "The Maine Woods").First(&book).Error)
	require.False(t, book.Visible)
	require.Equal(t, "Unknown", book.Condition)

	var entries []models.InventoryLog
	require.NoError(t, db.Where("book_id = ? AND type = ?", book.ID, models.InventoryInitialStock).
		Find(&entries).Error)
	require.Len(t, entries, 1)
}

func TestGenerateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	svc := &Service{DB: db, AI: &fakeGenerator{reply: modelReply}}

	_, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	var books, logs, recs int64
	db.Model(&models.Book{}).Where("title = ?", "The Maine Woods").Count(&books)
	db.Model(&models.InventoryLog{}).Where("type = ?", models.InventoryInitialStock).Count(&logs)
	db.Model(&models.Recommendation{}).Where("user_id = ?", user.ID).Count(&recs)
	require.Equal(t, int64(1), books)
	require.Equal(t, int64(1), logs)
	require.Equal(t, int64(1), recs)
}

func TestGenerateReusesExistingBookByTitle(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	existing := models.Book{Title: "The Maine Woods", Author: "Thoreau", Visible: true, Condition: "Good"}
	require.NoError(t, db.Create(&existing).Error)

	svc := &Service{DB: db, AI: &fakeGenerator{reply: modelReply}}
	recs, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, existing.ID, recs[0].BookID)

	// the existing listing stays visible
	var book models.Book
	require.NoError(t, db.First(&book, existing.ID).Error)
	require.True(t, book.Visible)
}

func TestGenerateNoReviewsSkipsModelCall(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Name: "silent", Email: "silent@example.com"}
	require.NoError(t, db.Create(&user).Error)

	gen := &fakeGenerator{reply: modelReply}
	svc := &Service{DB: db, AI: gen}

	_, err := svc.Generate(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrNoReviews)
	require.Zero(t, gen.calls)
}

func TestGenerateNoEmail(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Name: "anon"}
	require.NoError(t, db.Create(&user).Error)
	book := models.Book{Title: "Walden", Author: "Thoreau", Visible: true}
	require.NoError(t, db.Create(&book).Error)
	require.NoError(t, db.Create(&models.Review{UserID: user.ID, BookID: book.ID, Status: models.ReviewLike}).Error)

	svc := &Service{DB: db, AI: &fakeGenerator{reply: modelReply}}
	_, err := svc.Generate(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrNoEmail)
}

func TestGenerateUnparsableReply(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)

	svc := &Service{DB: db, AI: &fakeGenerator{reply: "I cannot help with that."}}
	_, err := svc.Generate(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrBadResponse)

	var count int64
	db.Model(&models.Recommendation{}).Count(&count)
	require.Zero(t, count)
}

func TestGenerateModelErrorPropagates(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)

	boom := errors.New("model exploded")
	svc := &Service{DB: db, AI: &fakeGenerator{err: boom}}
	_, err := svc.Generate(context.Background(), user.ID)
	require.ErrorIs(t, err, boom)
}

func TestGenerateUpsertsVectors(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	vecs := &fakeVectors{}
	svc := &Service{DB: db, AI: &fakeGenerator{reply: modelReply}, Vectors: vecs}

	recs, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, []uint64{uint64(user.ID)}, vecs.upserts[vectorstore.CollectionUserProfiles])
	require.Equal(t, []uint64{uint64(recs[0].BookID)}, vecs.upserts[vectorstore.CollectionBooks])
}

func TestSimilarResolvesPointsLocally(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	other := models.Book{Title: "Cape Cod", Author: "Thoreau", Visible: true}
	require.NoError(t, db.Create(&other).Error)

	vecs := &fakeVectors{searched: []uint64{uint64(other.ID), 999}}
	svc := &Service{DB: db, AI: &fakeGenerator{}, Vectors: vecs}

	books, err := svc.Similar(context.Background(), user.ID, 5)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Cape Cod", books[0].Title)
}

func TestParseCandidates(t *testing.T) {
	cands, err := ParseCandidates(`[{"title": "A", "author": "B"}]`)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, "A", cands[0].Title)

	cands, err = ParseCandidates("```json\n[{\"title\": \"A\"}]\n```")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	cands, err = ParseCandidates("Here you go: [{\"title\": \"A\"}] enjoy!")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	_, err = ParseCandidates("no array here")
	require.ErrorIs(t, err, ErrBadResponse)

	_, err = ParseCandidates(`[{"title": 12}]`)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestGenerateTruncatesVerboseReply(t *testing.T) {
	db := newTestDB(t)
	user := seedReviewer(t, db)
	gen := &fakeGenerator{reply: `[
		{"title": "Candidate 1"}, {"title": "Candidate 2"}, {"title": "Candidate 3"},
		{"title": "Candidate 4"}, {"title": "Candidate 5"}, {"title": "Candidate 6"}]`}
	svc := &Service{DB: db, AI: gen}

	recs, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, recs, maxCandidates)

	var created int64
	db.Model(&models.Book{}).Where("title LIKE ?", "Candidate %").Count(&created)
	require.Equal(t, int64(maxCandidates), created)
}
