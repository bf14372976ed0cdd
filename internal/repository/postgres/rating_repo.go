package postgres

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"

	"econet/internal/domain"

	"github.com/jackc/pgx/v5"
)

const (
	// upsertAddRatingQuery - атомарный insert-or-add: первая оценка продукта
	// создает строку агрегата, остальные прибавляются к ней. Никакого
	// read-modify-write на стороне приложения.
	upsertAddRatingQuery = `INSERT INTO product_ratings (product_id, sum_effectiveness, sum_price_value, sum_ease_of_use, sum_quality, review_count)
							VALUES ($1, $2, $3, $4, $5, 1)
							ON CONFLICT (product_id) DO UPDATE
							SET sum_effectiveness = product_ratings.sum_effectiveness + EXCLUDED.sum_effectiveness,
							    sum_price_value = product_ratings.sum_price_value + EXCLUDED.sum_price_value,
							    sum_ease_of_use = product_ratings.sum_ease_of_use + EXCLUDED.sum_ease_of_use,
							    sum_quality = product_ratings.sum_quality + EXCLUDED.sum_quality,
							    review_count = product_ratings.review_count + 1`

	// adjustRatingQuery прибавляет дельты к суммам, строка блокируется самим UPDATE.
	adjustRatingQuery = `UPDATE product_ratings
						 SET sum_effectiveness = sum_effectiveness + $2,
						     sum_price_value = sum_price_value + $3,
						     sum_ease_of_use = sum_ease_of_use + $4,
						     sum_quality = sum_quality + $5,
						     review_count = review_count + $6
						 WHERE product_id = $1`

	getAggregateQuery = `SELECT product_id, sum_effectiveness, sum_price_value, sum_ease_of_use, sum_quality, review_count
						 FROM product_ratings WHERE product_id = $1`

	getStatsTotalsQuery = `SELECT COALESCE(SUM(review_count), 0)::int,
								  CASE WHEN COALESCE(SUM(review_count), 0) = 0 THEN 0
								       ELSE SUM(sum_effectiveness + sum_price_value + sum_ease_of_use + sum_quality) / (SUM(review_count) * 4)
								  END::float8
						   FROM product_ratings`

	getDistributionQuery = `SELECT COUNT(*) FILTER (WHERE avg_score >= 4.5),
								   COUNT(*) FILTER (WHERE avg_score >= 3.5 AND avg_score < 4.5),
								   COUNT(*) FILTER (WHERE avg_score >= 2.5 AND avg_score < 3.5),
								   COUNT(*) FILTER (WHERE avg_score >= 1.5 AND avg_score < 2.5),
								   COUNT(*) FILTER (WHERE avg_score < 1.5)
							FROM (SELECT (effectiveness + price_value + ease_of_use + quality) / 4 AS avg_score FROM reviews) r`
)

// GetAggregate возвращает агрегат продукта. Для продукта без отзывов строки
// нет - возвращается domain.ErrNotFound, чтение отдает нулевой рейтинг.
func (r *RatingRepository) GetAggregate(ctx context.Context, productID int64) (*domain.AggregateRecord, error) {
	r.log.Debug("Getting product rating aggregate", zap.Int64("product_id", productID))
	var record domain.AggregateRecord
	err := r.pool.QueryRow(ctx, getAggregateQuery, productID).Scan(
		&record.ProductID,
		&record.SumEffectiveness,
		&record.SumPriceValue,
		&record.SumEaseOfUse,
		&record.SumQuality,
		&record.ReviewCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Debug("No aggregate row for product", zap.Int64("product_id", productID))
			return nil, domain.ErrNotFound
		}
		r.log.Error("Error getting product rating aggregate", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("error getting product rating aggregate: %w", err)
	}
	return &record, nil
}

// GetReviewStats собирает сводную статистику: общее количество отзывов,
// неокругленный глобальный средний балл и распределение отзывов по средней оценке.
func (r *RatingRepository) GetReviewStats(ctx context.Context) (*domain.ReviewStats, error) {
	log := r.log.With(zap.String("repo_method", "GetReviewStats"))
	log.Debug("Fetching review statistics from database")

	var stats domain.ReviewStats
	if err := r.pool.QueryRow(ctx, getStatsTotalsQuery).Scan(&stats.TotalReviews, &stats.GlobalAverage); err != nil {
		log.Error("Failed to query review stats totals", zap.Error(err))
		return nil, fmt.Errorf("failed to query review stats totals: %w", err)
	}

	if err := r.pool.QueryRow(ctx, getDistributionQuery).Scan(
		&stats.Distribution.Excellent,
		&stats.Distribution.Good,
		&stats.Distribution.Regular,
		&stats.Distribution.Poor,
		&stats.Distribution.VeryPoor,
	); err != nil {
		log.Error("Failed to query rating distribution", zap.Error(err))
		return nil, fmt.Errorf("failed to query rating distribution: %w", err)
	}

	log.Info("Successfully fetched review statistics", zap.Int("total_reviews", stats.TotalReviews))
	return &stats, nil
}
