package postgres

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"

	"econet/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	existsReviewQuery = `SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`

	insertReviewQuery = `INSERT INTO reviews (user_id, product_id, description, effectiveness, price_value, ease_of_use, quality, overall_satisfaction)
						 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
						 RETURNING id`

	lockReviewQuery = `SELECT user_id, product_id, effectiveness, price_value, ease_of_use, quality
					   FROM reviews WHERE id = $1 FOR UPDATE`

	updateReviewQuery = `UPDATE reviews
						 SET description = COALESCE($2, description),
						     effectiveness = COALESCE($3, effectiveness),
						     price_value = COALESCE($4, price_value),
						     ease_of_use = COALESCE($5, ease_of_use),
						     quality = COALESCE($6, quality),
						     updated_at = now()
						 WHERE id = $1`

	deleteReviewQuery = `DELETE FROM reviews WHERE id = $1`

	getReviewByIDQuery = `SELECT id, user_id, product_id, description, effectiveness, price_value, ease_of_use, quality, overall_satisfaction, created_at, updated_at
						  FROM reviews WHERE id = $1`

	getReviewsByProductQuery = `SELECT id, user_id, product_id, description, effectiveness, price_value, ease_of_use, quality, overall_satisfaction, created_at, updated_at
								FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`

	getReviewsByUserQuery = `SELECT id, user_id, product_id, description, effectiveness, price_value, ease_of_use, quality, overall_satisfaction, created_at, updated_at
							 FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`

	uniqueViolationCode = "23505"
)

// GetReviewByID находит отзыв по ID
func (r *ReviewRepository) GetReviewByID(ctx context.Context, id int64) (*domain.Review, error) {
	r.log.Debug("Getting review by id", zap.Int64("id", id))
	review, err := scanReview(r.pool.QueryRow(ctx, getReviewByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Warn("Review not found", zap.Int64("id", id))
			return nil, domain.ErrNotFound
		}
		r.log.Error("Error getting review by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("error getting review by id: %w", err)
	}
	r.log.Debug("Review found", zap.Int64("id", id))
	return review, nil
}

// HasReviewed проверяет, оставлял ли пользователь отзыв на продукт
func (r *ReviewRepository) HasReviewed(ctx context.Context, userID uuid.UUID, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, existsReviewQuery, userID, productID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check if review exists", zap.String("user_id", userID.String()), zap.Int64("product_id", productID), zap.Error(err))
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// GetReviewsByProduct возвращает отзывы продукта, новые первыми
func (r *ReviewRepository) GetReviewsByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	r.log.Debug("Getting reviews by product", zap.Int64("product_id", productID))
	rows, err := r.pool.Query(ctx, getReviewsByProductQuery, productID)
	if err != nil {
		r.log.Error("Failed to query reviews by product", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("failed to query reviews by product: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// GetReviewsByUser возвращает отзывы пользователя, новые первыми
func (r *ReviewRepository) GetReviewsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Review, error) {
	r.log.Debug("Getting reviews by user", zap.String("user_id", userID.String()))
	rows, err := r.pool.Query(ctx, getReviewsByUserQuery, userID)
	if err != nil {
		r.log.Error("Failed to query reviews by user", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query reviews by user: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// insertReviewTx вставляет строку отзыва внутри транзакции вызывающего.
func insertReviewTx(ctx context.Context, tx pgx.Tx, review *domain.Review) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, insertReviewQuery,
		review.UserID,
		review.ProductID,
		review.Description,
		review.Scores.Effectiveness,
		review.Scores.PriceValue,
		review.Scores.EaseOfUse,
		review.Scores.Quality,
		review.OverallSatisfaction,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, domain.ErrAlreadyReviewed
		}
		return 0, err
	}
	return id, nil
}

// lockReviewTx блокирует строку отзыва и возвращает ее текущие оценки
// и продукт вместе с владельцем.
func lockReviewTx(ctx context.Context, tx pgx.Tx, reviewID int64) (*domain.Review, uuid.UUID, error) {
	var (
		review  domain.Review
		ownerID uuid.UUID
	)
	err := tx.QueryRow(ctx, lockReviewQuery, reviewID).Scan(
		&ownerID,
		&review.ProductID,
		&review.Scores.Effectiveness,
		&review.Scores.PriceValue,
		&review.Scores.EaseOfUse,
		&review.Scores.Quality,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uuid.Nil, domain.ErrNotFound
		}
		return nil, uuid.Nil, err
	}
	review.ID = reviewID
	review.UserID = ownerID
	return &review, ownerID, nil
}

// updateReviewTx применяет патч: nil-поля передаются как NULL и COALESCE
// оставляет прежние значения.
func updateReviewTx(ctx context.Context, tx pgx.Tx, reviewID int64, patch domain.ReviewPatch) error {
	_, err := tx.Exec(ctx, updateReviewQuery,
		reviewID,
		patch.Description,
		patch.Effectiveness,
		patch.PriceValue,
		patch.EaseOfUse,
		patch.Quality,
	)
	return err
}

// deleteReviewTx удаляет строку отзыва внутри транзакции вызывающего.
func deleteReviewTx(ctx context.Context, tx pgx.Tx, reviewID int64) error {
	commandTag, err := tx.Exec(ctx, deleteReviewQuery, reviewID)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.ProductID,
		&review.Description,
		&review.Scores.Effectiveness,
		&review.Scores.PriceValue,
		&review.Scores.EaseOfUse,
		&review.Scores.Quality,
		&review.OverallSatisfaction,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func collectReviews(rows pgx.Rows) ([]*domain.Review, error) {
	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return reviews, nil
}
