package service

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"math"
	"strings"

	"econet/internal/domain"

	"github.com/google/uuid"
)

const (
	// canReviewReasonDuplicate возвращается в ответе canReview, когда отзыв уже есть.
	canReviewReasonDuplicate = "user has already reviewed this product"
)

// ReviewStore - атомарный контракт хранилища: каждый *Tx-метод выполняет
// запись отзыва и корректировку агрегата в одной транзакции.
type ReviewStore interface {
	CreateReviewTx(ctx context.Context, review *domain.Review) (int64, error)
	UpdateReviewTx(ctx context.Context, reviewID int64, userID uuid.UUID, patch domain.ReviewPatch) error
	DeleteReviewTx(ctx context.Context, reviewID int64, userID uuid.UUID, isAdmin bool) error
	GetReviewByID(ctx context.Context, id int64) (*domain.Review, error)
	HasReviewed(ctx context.Context, userID uuid.UUID, productID int64) (bool, error)
	GetReviewsByProduct(ctx context.Context, productID int64) ([]*domain.Review, error)
	GetReviewsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Review, error)
}

type ReviewService struct {
	store ReviewStore
	log   *zap.Logger
}

func NewReviewService(store ReviewStore, log *zap.Logger) *ReviewService {
	return &ReviewService{
		store: store,
		log:   log.Named("ReviewService"),
	}
}

// CreateReview проверяет оценки и текст, затем создает отзыв вместе с
// корректировкой агрегата продукта. Повторный отзыв на тот же продукт
// завершается domain.ErrAlreadyReviewed.
func (rs *ReviewService) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	log := rs.log.With(
		zap.String("user_id", review.UserID.String()),
		zap.Int64("product_id", review.ProductID),
		zap.String("method", "CreateReview"),
	)

	if review.UserID == uuid.Nil || review.ProductID <= 0 {
		log.Warn("user or product is missing")
		return nil, domain.ErrOneOfParametersNil
	}
	if err := validateScores(review.Scores); err != nil {
		log.Warn("invalid scores", zap.Error(err))
		return nil, err
	}
	if review.OverallSatisfaction != nil && !isValidScore(*review.OverallSatisfaction) {
		log.Warn("invalid overall satisfaction score")
		return nil, domain.ErrInvalidScore
	}
	if err := validateDescription(review.Description); err != nil {
		log.Warn("invalid description", zap.Error(err))
		return nil, err
	}

	id, err := rs.store.CreateReviewTx(ctx, review)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			log.Warn("user has already reviewed this product")
			return nil, domain.ErrAlreadyReviewed
		}
		log.Error("Failed to create review", zap.Error(err))
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	review.ID = id
	log.Info("Review created", zap.Int64("review_id", id))
	return review, nil
}

// UpdateReview применяет частичное обновление отзыва владельца. Дельта к
// агрегату вычисляется и применяется хранилищем в той же транзакции.
func (rs *ReviewService) UpdateReview(ctx context.Context, reviewID int64, userID uuid.UUID, patch domain.ReviewPatch) error {
	log := rs.log.With(
		zap.Int64("review_id", reviewID),
		zap.String("user_id", userID.String()),
		zap.String("method", "UpdateReview"),
	)

	if reviewID <= 0 || userID == uuid.Nil {
		log.Warn("review or user is missing")
		return domain.ErrOneOfParametersNil
	}
	if patch.IsEmpty() {
		log.Warn("empty update request")
		return domain.ErrEmptyUpdate
	}
	for _, score := range []*float64{patch.Effectiveness, patch.PriceValue, patch.EaseOfUse, patch.Quality} {
		if score != nil && !isValidScore(*score) {
			log.Warn("invalid score in update")
			return domain.ErrInvalidScore
		}
	}
	if err := validateDescription(patch.Description); err != nil {
		log.Warn("invalid description", zap.Error(err))
		return err
	}

	if err := rs.store.UpdateReviewTx(ctx, reviewID, userID, patch); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("review not found")
			return domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrForbidden) {
			log.Warn("review belongs to another user")
			return domain.ErrForbidden
		}
		log.Error("Failed to update review", zap.Error(err))
		return fmt.Errorf("failed to update review: %w", err)
	}
	log.Info("Review updated")
	return nil
}

// DeleteReview удаляет отзыв владельца или любой отзыв для администратора.
// Повторное удаление возвращает domain.ErrNotFound, агрегат не трогается.
func (rs *ReviewService) DeleteReview(ctx context.Context, reviewID int64, userID uuid.UUID, isAdmin bool) error {
	log := rs.log.With(
		zap.Int64("review_id", reviewID),
		zap.String("user_id", userID.String()),
		zap.Bool("is_admin", isAdmin),
		zap.String("method", "DeleteReview"),
	)

	if reviewID <= 0 || userID == uuid.Nil {
		log.Warn("review or user is missing")
		return domain.ErrOneOfParametersNil
	}

	if err := rs.store.DeleteReviewTx(ctx, reviewID, userID, isAdmin); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("review not found")
			return domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrForbidden) {
			log.Warn("review belongs to another user")
			return domain.ErrForbidden
		}
		log.Error("Failed to delete review", zap.Error(err))
		return fmt.Errorf("failed to delete review: %w", err)
	}
	log.Info("Review deleted")
	return nil
}

func (rs *ReviewService) GetReviewByID(ctx context.Context, reviewID int64) (*domain.Review, error) {
	if reviewID <= 0 {
		rs.log.Warn("review id is missing", zap.Int64("review_id", reviewID))
		return nil, domain.ErrOneOfParametersNil
	}
	review, err := rs.store.GetReviewByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			rs.log.Warn("review not found", zap.Int64("review_id", reviewID))
			return nil, domain.ErrNotFound
		}
		rs.log.Error("failed to get review", zap.Int64("review_id", reviewID), zap.Error(err))
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

func (rs *ReviewService) GetReviewsByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	if productID <= 0 {
		rs.log.Warn("product id is missing", zap.Int64("product_id", productID))
		return nil, domain.ErrOneOfParametersNil
	}
	reviews, err := rs.store.GetReviewsByProduct(ctx, productID)
	if err != nil {
		rs.log.Error("failed to get reviews by product", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("failed to get reviews by product: %w", err)
	}
	return reviews, nil
}

func (rs *ReviewService) GetReviewsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Review, error) {
	if userID == uuid.Nil {
		rs.log.Warn("user id is missing")
		return nil, domain.ErrOneOfParametersNil
	}
	reviews, err := rs.store.GetReviewsByUser(ctx, userID)
	if err != nil {
		rs.log.Error("failed to get reviews by user", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get reviews by user: %w", err)
	}
	return reviews, nil
}

// CanUserReview сообщает, может ли пользователь оставить отзыв на продукт.
func (rs *ReviewService) CanUserReview(ctx context.Context, userID uuid.UUID, productID int64) (*domain.CanReview, error) {
	if userID == uuid.Nil || productID <= 0 {
		rs.log.Warn("user or product is missing")
		return nil, domain.ErrOneOfParametersNil
	}
	reviewed, err := rs.store.HasReviewed(ctx, userID, productID)
	if err != nil {
		rs.log.Error("failed to check if user has reviewed", zap.String("user_id", userID.String()), zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("failed to check if user has reviewed: %w", err)
	}
	if reviewed {
		return &domain.CanReview{CanReview: false, Reason: canReviewReasonDuplicate}, nil
	}
	return &domain.CanReview{CanReview: true}, nil
}

// isValidScore проверяет диапазон [0;5] и шаг 0.5.
func isValidScore(v float64) bool {
	if v < domain.ScoreMin || v > domain.ScoreMax {
		return false
	}
	return math.Mod(v*2, 1) == 0
}

func validateScores(scores domain.Scores) error {
	for _, v := range []float64{scores.Effectiveness, scores.PriceValue, scores.EaseOfUse, scores.Quality} {
		if !isValidScore(v) {
			return domain.ErrInvalidScore
		}
	}
	return nil
}

// validateDescription допускает отсутствие текста; присутствующий текст
// должен укладываться в лимиты после обрезки пробелов.
func validateDescription(description *string) error {
	if description == nil {
		return nil
	}
	length := len([]rune(strings.TrimSpace(*description)))
	if length < domain.DescriptionMinLength || length > domain.DescriptionMaxLength {
		return domain.ErrInvalidDescription
	}
	return nil
}
