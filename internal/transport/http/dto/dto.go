package dto

import (
	"time"

	"econet/internal/domain"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateReviewRequest struct {
	ProductID           int64    `json:"product_id"`
	Description         *string  `json:"description,omitempty"`
	Effectiveness       float64  `json:"effectiveness"`
	PriceValue          float64  `json:"price_value"`
	EaseOfUse           float64  `json:"ease_of_use"`
	Quality             float64  `json:"quality"`
	OverallSatisfaction *float64 `json:"overall_satisfaction,omitempty"`
}

type UpdateReviewRequest struct {
	ReviewID      int64    `json:"review_id"`
	Description   *string  `json:"description,omitempty"`
	Effectiveness *float64 `json:"effectiveness,omitempty"`
	PriceValue    *float64 `json:"price_value,omitempty"`
	EaseOfUse     *float64 `json:"ease_of_use,omitempty"`
	Quality       *float64 `json:"quality,omitempty"`
}

type DeleteReviewRequest struct {
	ReviewID int64 `json:"review_id"`
}

type ReviewResponse struct {
	ReviewID            int64     `json:"review_id"`
	UserID              uuid.UUID `json:"user_id"`
	ProductID           int64     `json:"product_id"`
	Description         *string   `json:"description,omitempty"`
	Effectiveness       float64   `json:"effectiveness"`
	PriceValue          float64   `json:"price_value"`
	EaseOfUse           float64   `json:"ease_of_use"`
	Quality             float64   `json:"quality"`
	OverallSatisfaction *float64  `json:"overall_satisfaction,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type ReviewsResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
}

type ProductRatingResponse struct {
	ProductID     int64   `json:"product_id"`
	Effectiveness float64 `json:"effectiveness"`
	PriceValue    float64 `json:"price_value"`
	EaseOfUse     float64 `json:"ease_of_use"`
	Quality       float64 `json:"quality"`
	Overall       float64 `json:"overall"`
	ReviewCount   int     `json:"review_count"`
}

type CanReviewResponse struct {
	CanReview bool   `json:"can_review"`
	Reason    string `json:"reason,omitempty"`
}

type DistributionDTO struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Regular   int `json:"regular"`
	Poor      int `json:"poor"`
	VeryPoor  int `json:"very_poor"`
}

type StatsResponse struct {
	TotalReviews  int             `json:"total_reviews"`
	GlobalAverage float64         `json:"global_average"`
	Distribution  DistributionDTO `json:"distribution"`
}

// ToReviewDomain собирает доменную модель отзыва из запроса на создание.
func ToReviewDomain(req CreateReviewRequest, userID uuid.UUID) *domain.Review {
	return &domain.Review{
		UserID:      userID,
		ProductID:   req.ProductID,
		Description: req.Description,
		Scores: domain.Scores{
			Effectiveness: req.Effectiveness,
			PriceValue:    req.PriceValue,
			EaseOfUse:     req.EaseOfUse,
			Quality:       req.Quality,
		},
		OverallSatisfaction: req.OverallSatisfaction,
	}
}

// ToReviewPatch преобразует запрос на обновление в частичный патч.
func ToReviewPatch(req UpdateReviewRequest) domain.ReviewPatch {
	return domain.ReviewPatch{
		Description:   req.Description,
		Effectiveness: req.Effectiveness,
		PriceValue:    req.PriceValue,
		EaseOfUse:     req.EaseOfUse,
		Quality:       req.Quality,
	}
}

func FromReviewDomain(review *domain.Review) ReviewResponse {
	return ReviewResponse{
		ReviewID:            review.ID,
		UserID:              review.UserID,
		ProductID:           review.ProductID,
		Description:         review.Description,
		Effectiveness:       review.Scores.Effectiveness,
		PriceValue:          review.Scores.PriceValue,
		EaseOfUse:           review.Scores.EaseOfUse,
		Quality:             review.Scores.Quality,
		OverallSatisfaction: review.OverallSatisfaction,
		CreatedAt:           review.CreatedAt,
		UpdatedAt:           review.UpdatedAt,
	}
}

func FromReviewsDomain(reviews []*domain.Review) ReviewsResponse {
	responses := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		responses = append(responses, FromReviewDomain(review))
	}
	return ReviewsResponse{Reviews: responses}
}

func FromProductRatingDomain(rating *domain.ProductRating) ProductRatingResponse {
	return ProductRatingResponse{
		ProductID:     rating.ProductID,
		Effectiveness: rating.Effectiveness,
		PriceValue:    rating.PriceValue,
		EaseOfUse:     rating.EaseOfUse,
		Quality:       rating.Quality,
		Overall:       rating.Overall,
		ReviewCount:   rating.ReviewCount,
	}
}

func FromCanReviewDomain(canReview *domain.CanReview) CanReviewResponse {
	return CanReviewResponse{
		CanReview: canReview.CanReview,
		Reason:    canReview.Reason,
	}
}

func FromReviewStatsDomain(stats *domain.ReviewStats) StatsResponse {
	return StatsResponse{
		TotalReviews:  stats.TotalReviews,
		GlobalAverage: stats.GlobalAverage,
		Distribution: DistributionDTO{
			Excellent: stats.Distribution.Excellent,
			Good:      stats.Distribution.Good,
			Regular:   stats.Distribution.Regular,
			Poor:      stats.Distribution.Poor,
			VeryPoor:  stats.Distribution.VeryPoor,
		},
	}
}
