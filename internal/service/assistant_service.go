package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/vbonduro/ingredia/internal/cache"
	"github.com/vbonduro/ingredia/internal/domain"
	"github.com/vbonduro/ingredia/internal/imagestore"
	"github.com/vbonduro/ingredia/internal/llm"
	"github.com/vbonduro/ingredia/internal/prompt"
	"github.com/vbonduro/ingredia/internal/spreadsheet"
	"github.com/vbonduro/ingredia/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrInvalidImage    = errors.New("invalid image")

	// ErrModel marks failures reported by the model provider.
	ErrModel = errors.New("model request failed")
)

const (
	DefaultMaxQuestionChars     = 2000
	DefaultMaxPromptChars       = 120_000
	DefaultDescriptionCacheSize = 128
)

// productRepository is the subset of store.ProductStore that AssistantService requires.
type productRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByHash(ctx context.Context, imageHash string) (*domain.Product, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Product, error)
	UpdateDescription(ctx context.Context, id int64, description, provider string) error
	Delete(ctx context.Context, id int64) error
}

// answerRepository is the subset of store.AnswerStore that AssistantService requires.
type answerRepository interface {
	Create(ctx context.Context, productID int64, question, answer string) (*domain.Answer, error)
	GetByID(ctx context.Context, id int64) (*domain.Answer, error)
	ListByProductID(ctx context.Context, productID int64) ([]*domain.Answer, error)
	Delete(ctx context.Context, id int64) error
}

type sheetLoader interface {
	Load(ctx context.Context, path string) (*spreadsheet.Sheet, error)
}

type Options struct {
	SpreadsheetPath      string
	MaxQuestionChars     int
	MaxPromptChars       int
	DescriptionCacheSize int
}

// AssistantService runs the describe-then-ask flow and records its history.
type AssistantService struct {
	products     productRepository
	answers      answerRepository
	sheets       sheetLoader
	model        llm.Provider
	images       imagestore.ImageStore
	descriptions *cache.Memo[string]
	opts         Options
	logger       *slog.Logger
}

func NewAssistantService(
	products productRepository,
	answers answerRepository,
	sheets sheetLoader,
	model llm.Provider,
	images imagestore.ImageStore,
	logger *slog.Logger,
	opts Options,
) (*AssistantService, error) {
	if opts.MaxQuestionChars <= 0 {
		opts.MaxQuestionChars = DefaultMaxQuestionChars
	}
	if opts.MaxPromptChars <= 0 {
		opts.MaxPromptChars = DefaultMaxPromptChars
	}
	if opts.DescriptionCacheSize <= 0 {
		opts.DescriptionCacheSize = DefaultDescriptionCacheSize
	}

	if minChars := prompt.MinChars(opts.MaxQuestionChars); opts.MaxPromptChars < minChars {
		return nil, fmt.Errorf("prompt bound %d is below %d, the minimum for %d-character questions",
			opts.MaxPromptChars, minChars, opts.MaxQuestionChars)
	}

	descriptions, err := cache.NewMemo[string](opts.DescriptionCacheSize)
	if err != nil {
		return nil, err
	}

	return &AssistantService{
		products:     products,
		answers:      answers,
		sheets:       sheets,
		model:        model,
		images:       images,
		descriptions: descriptions,
		opts:         opts,
		logger:       logger,
	}, nil
}

// Spreadsheet returns the text rendering of the configured spreadsheet.
func (s *AssistantService) Spreadsheet(ctx context.Context) (*spreadsheet.Sheet, error) {
	return s.sheets.Load(ctx, s.opts.SpreadsheetPath)
}

// DescribeImage returns the model's description of the image, calling the
// model at most once per distinct image content. A caller that gives up does
// not cancel the model call for others waiting on the same image.
func (s *AssistantService) DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}

	key := cache.Key(imageData)
	description, hit, err := s.descriptions.Get(ctx, key, func(ctx context.Context) (string, error) {
		s.logger.Info("image description started", "image_hash", key, "provider", s.model.Name(), "bytes", len(imageData))
		text, err := s.model.Describe(ctx, bytes.NewReader(imageData), mimeType)
		if err != nil {
			return "", err
		}
		s.logger.Info("image description complete", "image_hash", key, "chars", len(text))
		return text, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", fmt.Errorf("failed to describe image: %w", err)
		}
		return "", fmt.Errorf("failed to describe image: %w: %w", ErrModel, err)
	}
	if hit {
		s.logger.Debug("image description cache hit", "image_hash", key)
	}
	return description, nil
}

// UploadProduct describes the image and records it as a product. Uploading
// bytes that are already recorded returns the existing product.
func (s *AssistantService) UploadProduct(ctx context.Context, imageData []byte, mimeType string) (*domain.Product, error) {
	s.logger.Info("upload product started", "mime_type", mimeType, "bytes", len(imageData))

	key := cache.Key(imageData)
	existing, err := s.products.GetByHash(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if existing != nil {
		s.logger.Info("upload product matched existing", "product_id", existing.ID)
		return existing, nil
	}

	description, err := s.DescribeImage(ctx, imageData, mimeType)
	if err != nil {
		return nil, err
	}

	storageKey, err := s.images.Save(ctx, key, mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	s.logger.Debug("image saved", "storage_key", storageKey)

	product, err := s.products.Create(ctx, &domain.Product{
		ImageHash:   key,
		StorageKey:  storageKey,
		MimeType:    mimeType,
		SizeBytes:   int64(len(imageData)),
		Description: description,
		Provider:    s.model.Name(),
	})
	if err != nil {
		// A concurrent upload of the same bytes may have won the insert. It
		// shares this storage key, so the file stays.
		if winner, lookupErr := s.products.GetByHash(ctx, key); lookupErr == nil && winner != nil {
			s.logger.Info("upload product matched concurrent insert", "product_id", winner.ID)
			return winner, nil
		}
		if stgErr := s.images.Delete(ctx, storageKey); stgErr != nil && !errors.Is(stgErr, imagestore.ErrNotFound) {
			s.logger.Error("failed to roll back image after create error", "storage_key", storageKey, "error", stgErr)
		}
		return nil, fmt.Errorf("failed to create product record: %w", err)
	}

	s.logger.Info("upload product complete", "product_id", product.ID)
	return product, nil
}

// Redescribe asks the model for a fresh description of a recorded product's
// image and stores it in place of the old one. Earlier answers are kept.
func (s *AssistantService) Redescribe(ctx context.Context, productID int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}

	r, _, err := s.images.Get(ctx, product.StorageKey)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	imageData, err := io.ReadAll(r)
	if cerr := r.Close(); cerr != nil {
		s.logger.Error("failed to close image", "storage_key", product.StorageKey, "error", cerr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	s.descriptions.Remove(product.ImageHash)
	description, err := s.DescribeImage(ctx, imageData, product.MimeType)
	if err != nil {
		return nil, err
	}

	if err := s.products.UpdateDescription(ctx, productID, description, s.model.Name()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update description: %w", err)
	}
	s.logger.Info("product redescribed", "product_id", productID, "provider", s.model.Name())

	product.Description = description
	product.Provider = s.model.Name()
	return product, nil
}

// Answer runs one question against a description and the spreadsheet. It
// never caches: every call reaches the model.
func (s *AssistantService) Answer(ctx context.Context, description, question string) (string, error) {
	question, err := s.validateQuestion(question)
	if err != nil {
		return "", err
	}

	sheet, err := s.Spreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load spreadsheet: %w", err)
	}

	p, shortened := prompt.BuildAnswerBounded(question, sheet.Text, description, s.opts.MaxPromptChars)
	if shortened {
		s.logger.Warn("prompt context shortened to fit bound", "max_chars", s.opts.MaxPromptChars)
	}

	s.logger.Info("answer started", "provider", s.model.Name(), "prompt_chars", len(p))
	text, err := s.model.Answer(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w: %w", ErrModel, err)
	}
	s.logger.Info("answer complete", "chars", len(text))
	return text, nil
}

// Ask answers a question about a recorded product and stores the exchange.
func (s *AssistantService) Ask(ctx context.Context, productID int64, question string) (*domain.Answer, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}

	text, err := s.Answer(ctx, product.Description, question)
	if err != nil {
		return nil, err
	}

	answer, err := s.answers.Create(ctx, productID, strings.TrimSpace(question), text)
	if err != nil {
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}
	return answer, nil
}

func (s *AssistantService) validateQuestion(question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidQuestion)
	}
	if n := utf8.RuneCountInString(question); n > s.opts.MaxQuestionChars {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrInvalidQuestion, n, s.opts.MaxQuestionChars)
	}
	return question, nil
}

func (s *AssistantService) GetProduct(ctx context.Context, productID int64) (*domain.Product, []*domain.Answer, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, nil, ErrNotFound
	}

	answers, err := s.answers.ListByProductID(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return product, answers, nil
}

// DeleteAnswer removes one recorded answer of a product. An answer that
// belongs to a different product is reported as not found.
func (s *AssistantService) DeleteAnswer(ctx context.Context, productID, answerID int64) error {
	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return fmt.Errorf("failed to get answer: %w", err)
	}
	if answer == nil || answer.ProductID != productID {
		return ErrNotFound
	}

	if err := s.answers.Delete(ctx, answerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	s.logger.Info("answer deleted", "product_id", productID, "answer_id", answerID)
	return nil
}

// QuestionLimit is the longest question, in characters, that Answer accepts.
func (s *AssistantService) QuestionLimit() int {
	return s.opts.MaxQuestionChars
}

func (s *AssistantService) ListRecent(ctx context.Context, limit int) ([]*domain.Product, error) {
	return s.products.ListRecent(ctx, limit)
}

// OpenImage returns the stored image of a product. The caller closes the reader.
func (s *AssistantService) OpenImage(ctx context.Context, productID int64) (io.ReadCloser, string, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, "", ErrNotFound
	}

	r, mimeType, err := s.images.Get(ctx, product.StorageKey)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return r, mimeType, nil
}

// DeleteProduct removes the product, its answers and its stored image. The
// cached description is kept so a re-upload does not call the model again.
func (s *AssistantService) DeleteProduct(ctx context.Context, productID int64) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return ErrNotFound
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if err := s.images.Delete(ctx, product.StorageKey); err != nil {
		s.logger.Error("failed to delete image file", "storage_key", product.StorageKey, "error", err)
	}
	return nil
}
