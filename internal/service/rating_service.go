package service

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"

	"econet/internal/domain"
)

type RatingRepository interface {
	GetAggregate(ctx context.Context, productID int64) (*domain.AggregateRecord, error)
	GetReviewStats(ctx context.Context) (*domain.ReviewStats, error)
}

type RatingService struct {
	ratingRepo RatingRepository
	log        *zap.Logger
}

func NewRatingService(ratingRepo RatingRepository, log *zap.Logger) *RatingService {
	return &RatingService{
		ratingRepo: ratingRepo,
		log:        log.Named("RatingService"),
	}
}

// GetProductRating возвращает средние оценки продукта за O(1) чтение агрегата.
// Продукт без отзывов - не ошибка: отдается нулевой рейтинг.
func (s *RatingService) GetProductRating(ctx context.Context, productID int64) (*domain.ProductRating, error) {
	if productID <= 0 {
		s.log.Warn("product id is missing", zap.Int64("product_id", productID))
		return nil, domain.ErrOneOfParametersNil
	}

	record, err := s.ratingRepo.GetAggregate(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			rating := CalculateRating(productID, nil)
			return &rating, nil
		}
		s.log.Error("Failed to get product rating aggregate", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("failed to get product rating aggregate: %w", err)
	}

	rating := CalculateRating(productID, record)
	return &rating, nil
}

// GetReviewStats возвращает сводную статистику по всем отзывам.
func (s *RatingService) GetReviewStats(ctx context.Context) (*domain.ReviewStats, error) {
	s.log.Info("Fetching review stats")

	stats, err := s.ratingRepo.GetReviewStats(ctx)
	if err != nil {
		s.log.Error("Failed to get review stats from repository", zap.Error(err))
		return nil, fmt.Errorf("failed to get stats from repo: %w", err)
	}

	stats.GlobalAverage = roundHalfUp1(stats.GlobalAverage)
	return stats, nil
}
