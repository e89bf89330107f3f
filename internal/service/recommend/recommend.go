// Package recommend runs the LLM recommendation pipeline: reviews in, prompt
// out, candidates parsed from the model's JSON reply, then one transaction
// upserting books, initial-stock ledger rows and recommendation rows. The
// transaction is the atomicity boundary; a failure anywhere inside rolls back
// every write of the invocation.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/vectorstore"
)

var (
	// ErrNoReviews: the user has nothing to base recommendations on.
	ErrNoReviews = errors.New("recommend: user has no reviews")
	// ErrNoEmail: no usable email resolves for the user.
	ErrNoEmail = errors.New("recommend: no usable user email")
	// ErrBadResponse: the model's reply was not the expected JSON array.
	ErrBadResponse = errors.New("recommend: unparsable model response")
)

// Generator is the generative-content dependency; satisfied by genai.Client.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Vectors is the vector-store dependency; satisfied by vectorstore.Client.
// Nil disables the (best-effort) vector side effects.
type Vectors interface {
	Upsert(ctx context.Context, collection string, id uint64, vector []float64, payload map[string]any) error
	Search(ctx context.Context, collection string, vector []float64, limit int) ([]vectorstore.ScoredPoint, error)
}

type Service struct {
	DB      *gorm.DB
	AI      Generator
	Vectors Vectors
}

// maxCandidates bounds how many model suggestions are persisted per run,
// whatever the reply actually contains.
const maxCandidates = 4

type Candidate struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// Generate produces recommendations for the user and persists them. Re-running
// with the same candidates creates no duplicate books, ledger rows or
// recommendation rows.
func (s *Service) Generate(ctx context.Context, userID uint) ([]models.Recommendation, error) {
	l := logging.FromContext(ctx).With("svc", "recommend.generate", "user_id", userID)

	var reviews []models.Review
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&reviews).Error; err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		l.Warn("generate_failed", "status", 404, "reason", "no reviews")
		return nil, ErrNoReviews
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.Email == "" {
		l.Warn("generate_failed", "status", 404, "reason", "no email")
		return nil, ErrNoEmail
	}

	prompt, err := s.buildPrompt(ctx, reviews)
	if err != nil {
		return nil, err
	}

	raw, err := s.AI.GenerateContent(ctx, prompt)
	if err != nil {
		l.Error("generate_failed", "reason", "model call failed", "error", err)
		return nil, err
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		l.Error("generate_failed", "reason", "unparsable response", "error", err)
		return nil, err
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	var recs []models.Recommendation
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cand := range candidates {
			if cand.Title == "" {
				continue
			}

			var book models.Book
			err := tx.Where("title = ?", cand.Title).First(&book).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				book = models.Book{
					Title:       cand.Title,
					Author:      cand.Author,
					ISBN:        cand.ISBN,
					Price:       cand.Price,
					Description: cand.Description,
					Visible:     false,
					Condition:   "Unknown",
				}
				if err := tx.Create(&book).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			var logCount int64
			if err := tx.Model(&models.InventoryLog{}).
				Where("book_id = ? AND type = ?", book.ID, models.InventoryInitialStock).
				Count(&logCount).Error; err != nil {
				return err
			}
			if logCount == 0 {
				entry := models.InventoryLog{
					BookID:   book.ID,
					Quantity: int(book.Quantity),
					Type:     models.InventoryInitialStock,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}

			rec := models.Recommendation{UserID: userID, BookID: book.ID}
			if err := tx.Where("user_id = ? AND book_id = ?", userID, book.ID).
				FirstOrCreate(&rec).Error; err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		l.Error("generate_failed", "reason", "transaction rolled back", "error", err)
		return nil, err
	}

	l.Info("generate_success", "candidates", len(candidates), "recommendations", len(recs))
	s.upsertVectors(ctx, userID, reviews, recs)
	return recs, nil
}

// Similar returns books close to the caller's profile vector. The similarity
// search runs in the vector store; the ids it returns are resolved locally.
func (s *Service) Similar(ctx context.Context, userID uint, limit int) ([]models.Book, error) {
	l := logging.FromContext(ctx).With("svc", "recommend.similar", "user_id", userID)

	if s.Vectors == nil || s.AI == nil {
		return nil, fmt.Errorf("vector search is not configured")
	}

	var reviews []models.Review
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&reviews).Error; err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, ErrNoReviews
	}

	profile, err := s.profileText(ctx, reviews)
	if err != nil {
		return nil, err
	}
	vector, err := s.AI.Embed(ctx, profile)
	if err != nil {
		return nil, err
	}

	points, err := s.Vectors.Search(ctx, vectorstore.CollectionBooks, vector, limit)
	if err != nil {
		l.Error("similar_failed", "error", err)
		return nil, err
	}

	books := make([]models.Book, 0, len(points))
	for _, pt := range points {
		var book models.Book
		if err := s.DB.WithContext(ctx).First(&book, uint(pt.ID)).Error; err != nil {
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

// upsertVectors pushes the user profile and recommended books into the vector
// store. Strictly best-effort: failures are logged and ignored.
func (s *Service) upsertVectors(ctx context.Context, userID uint, reviews []models.Review, recs []models.Recommendation) {
	if s.Vectors == nil {
		return
	}
	l := logging.FromContext(ctx).With("svc", "recommend.vectors", "user_id", userID)

	profile, err := s.profileText(ctx, reviews)
	if err == nil {
		if vec, err := s.AI.Embed(ctx, profile); err != nil {
			l.Warn("embed_failed", "error", err)
		} else if err := s.Vectors.Upsert(ctx, vectorstore.CollectionUserProfiles, uint64(userID), vec, map[string]any{"user_id": userID}); err != nil {
			l.Warn("profile_upsert_failed", "error", err)
		}
	}

	for _, rec := range recs {
		var book models.Book
		if err := s.DB.WithContext(ctx).First(&book, rec.BookID).Error; err != nil {
			continue
		}
		vec, err := s.AI.Embed(ctx, book.Title+" by "+book.Author+". "+book.Description)
		if err != nil {
			l.Warn("embed_failed", "book_id", book.ID, "error", err)
			continue
		}
		payload := map[string]any{"title": book.Title, "author": book.Author}
		if err := s.Vectors.Upsert(ctx, vectorstore.CollectionBooks, uint64(book.ID), vec, payload); err != nil {
			l.Warn("book_upsert_failed", "book_id", book.ID, "error", err)
		}
	}
}

func (s *Service) buildPrompt(ctx context.Context, reviews []models.Review) (string, error) {
	liked, disliked, err := s.titlesByStatus(ctx, reviews)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a book recommendation engine for a used-book marketplace.\n")
	if len(liked) > 0 {
		b.WriteString("The reader liked: " + strings.Join(liked, "; ") + ".\n")
	}
	if len(disliked) > 0 {
		b.WriteString("The reader disliked: " + strings.Join(disliked, "; ") + ".\n")
	}
	fmt.Fprintf(&b, "Recommend up to %d other books they might enjoy. ", maxCandidates)
	b.WriteString("Respond with ONLY a JSON array, no prose, where each element is ")
	b.WriteString(`{"title": string, "author": string, "isbn": string, "price": number, "description": string}.`)
	return b.String(), nil
}

func (s *Service) profileText(ctx context.Context, reviews []models.Review) (string, error) {
	liked, disliked, err := s.titlesByStatus(ctx, reviews)
	if err != nil {
		return "", err
	}
	return "Likes: " + strings.Join(liked, "; ") + ". Dislikes: " + strings.Join(disliked, "; ") + ".", nil
}

func (s *Service) titlesByStatus(ctx context.Context, reviews []models.Review) (liked, disliked []string, err error) {
	for _, rev := range reviews {
		var book models.Book
		if err := s.DB.WithContext(ctx).First(&book, rev.BookID).Error; err != nil {
			continue
		}
		entry := fmt.Sprintf("%s by %s", book.Title, book.Author)
		switch rev.Status {
		case models.ReviewLike:
			liked = append(liked, entry)
		case models.ReviewDislike:
			disliked = append(disliked, entry)
		}
	}
	return liked, disliked, nil
}

// ParseCandidates decodes the model reply, tolerating markdown code fences
// around the array.
func ParseCandidates(raw string) ([]Candidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrBadResponse)
	}

	var out []Candidate
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return out, nil
}
