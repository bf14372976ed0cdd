package handler

import (
	"errors"
	"go.uber.org/zap"
	"net/http"
	"strconv"

	"econet/internal/domain"
	"econet/internal/service"
	"econet/internal/transport/http/dto"
	"econet/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	codeInternalError       = "INTERNAL_ERROR"
	codeInvalidBody         = "INVALID_BODY"
	codeParametersIncorrect = "PARAMETERS_INCORRECT"
	codeInvalidScore        = "INVALID_SCORE"
	codeInvalidDescription  = "INVALID_DESCRIPTION"
	codeEmptyUpdate         = "EMPTY_UPDATE"
	codeAlreadyReviewed     = "ALREADY_REVIEWED"
	codeNotFound            = "NOT_FOUND"
	codeForbidden           = "FORBIDDEN"
)

type Handler struct {
	reviewService service.ReviewService
	ratingService service.RatingService
}

func NewHandler(reviewService service.ReviewService, ratingService service.RatingService) *Handler {
	return &Handler{
		reviewService: reviewService,
		ratingService: ratingService,
	}
}

func (h *Handler) CreateReview(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userID, _, ok := middleware.UserFromContext(c)
	if !ok {
		log.Warn("User identity is missing")
		h.responseError(c, http.StatusUnauthorized, codeParametersIncorrect, "user identity is required")
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Failed to decode request body", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	review, err := h.reviewService.CreateReview(c.Request.Context(), dto.ToReviewDomain(req, userID))
	if err != nil {
		if errors.Is(err, domain.ErrOneOfParametersNil) {
			log.Warn("One of the parameters is nil", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "one of the parameters is incorrect")
			return
		}
		if errors.Is(err, domain.ErrInvalidScore) {
			log.Warn("Score out of range", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeInvalidScore, "scores must be between 0 and 5 in half-point steps")
			return
		}
		if errors.Is(err, domain.ErrInvalidDescription) {
			log.Warn("Description out of limits", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeInvalidDescription, "description must be between 10 and 1000 characters")
			return
		}
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			log.Warn("User has already reviewed this product", zap.Int64("product_id", req.ProductID))
			h.responseError(c, http.StatusConflict, codeAlreadyReviewed, "you have already reviewed this product")
			return
		}
		log.Error("Failed to create review", zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to create review")
		return
	}
	c.JSON(http.StatusCreated, dto.FromReviewDomain(review))
}

func (h *Handler) UpdateReview(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userID, _, ok := middleware.UserFromContext(c)
	if !ok {
		log.Warn("User identity is missing")
		h.responseError(c, http.StatusUnauthorized, codeParametersIncorrect, "user identity is required")
		return
	}
	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Failed to decode request body", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	err := h.reviewService.UpdateReview(c.Request.Context(), req.ReviewID, userID, dto.ToReviewPatch(req))
	if err != nil {
		if errors.Is(err, domain.ErrOneOfParametersNil) {
			log.Warn("One of the parameters is nil", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "one of the parameters is incorrect")
			return
		}
		if errors.Is(err, domain.ErrEmptyUpdate) {
			log.Warn("Empty update request", zap.Int64("review_id", req.ReviewID))
			h.responseError(c, http.StatusBadRequest, codeEmptyUpdate, "nothing to update")
			return
		}
		if errors.Is(err, domain.ErrInvalidScore) {
			log.Warn("Score out of range", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeInvalidScore, "scores must be between 0 and 5 in half-point steps")
			return
		}
		if errors.Is(err, domain.ErrInvalidDescription) {
			log.Warn("Description out of limits", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeInvalidDescription, "description must be between 10 and 1000 characters")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Review not found", zap.Int64("review_id", req.ReviewID))
			h.responseError(c, http.StatusNotFound, codeNotFound, "review not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			log.Warn("Review belongs to another user", zap.Int64("review_id", req.ReviewID))
			h.responseError(c, http.StatusForbidden, codeForbidden, "you do not own this review")
			return
		}
		log.Error("Failed to update review", zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to update review")
		return
	}
	review, err := h.reviewService.GetReviewByID(c.Request.Context(), req.ReviewID)
	if err != nil {
		log.Error("Failed to get updated review", zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get updated review")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewDomain(review))
}

func (h *Handler) DeleteReview(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userID, isAdmin, ok := middleware.UserFromContext(c)
	if !ok {
		log.Warn("User identity is missing")
		h.responseError(c, http.StatusUnauthorized, codeParametersIncorrect, "user identity is required")
		return
	}
	var req dto.DeleteReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Failed to decode request body", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	err := h.reviewService.DeleteReview(c.Request.Context(), req.ReviewID, userID, isAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrOneOfParametersNil) {
			log.Warn("One of the parameters is nil", zap.Error(err))
			h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "one of the parameters is incorrect")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Review not found", zap.Int64("review_id", req.ReviewID))
			h.responseError(c, http.StatusNotFound, codeNotFound, "review not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			log.Warn("Review belongs to another user", zap.Int64("review_id", req.ReviewID))
			h.responseError(c, http.StatusForbidden, codeForbidden, "you do not own this review")
			return
		}
		log.Error("Failed to delete review", zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to delete review")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetReview(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	reviewID, err := parseIDQuery(c, "review_id")
	if err != nil {
		log.Warn("Invalid review_id query parameter", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "invalid review_id query parameter")
		return
	}
	review, err := h.reviewService.GetReviewByID(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Review not found", zap.Int64("review_id", reviewID))
			h.responseError(c, http.StatusNotFound, codeNotFound, "review not found")
			return
		}
		log.Error("Failed to get review", zap.Int64("review_id", reviewID), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get review")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewDomain(review))
}

func (h *Handler) GetReviewsByProduct(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	productID, err := parseIDQuery(c, "product_id")
	if err != nil {
		log.Warn("Invalid product_id query parameter", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "invalid product_id query parameter")
		return
	}
	reviews, err := h.reviewService.GetReviewsByProduct(c.Request.Context(), productID)
	if err != nil {
		log.Error("Failed to get reviews by product", zap.Int64("product_id", productID), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get reviews by product")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewsDomain(reviews))
}

func (h *Handler) GetReviewsByUser(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userIDStr := c.Query("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Warn("Invalid user_id query parameter", zap.String("user_id", userIDStr), zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "invalid user_id query parameter")
		return
	}
	reviews, err := h.reviewService.GetReviewsByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to get reviews by user", zap.String("user_id", userID.String()), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get reviews by user")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewsDomain(reviews))
}

func (h *Handler) GetMyReviews(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userID, _, ok := middleware.UserFromContext(c)
	if !ok {
		log.Warn("User identity is missing")
		h.responseError(c, http.StatusUnauthorized, codeParametersIncorrect, "user identity is required")
		return
	}
	reviews, err := h.reviewService.GetReviewsByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to get own reviews", zap.String("user_id", userID.String()), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get own reviews")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewsDomain(reviews))
}

func (h *Handler) CanReview(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	userID, _, ok := middleware.UserFromContext(c)
	if !ok {
		log.Warn("User identity is missing")
		h.responseError(c, http.StatusUnauthorized, codeParametersIncorrect, "user identity is required")
		return
	}
	productID, err := parseIDQuery(c, "product_id")
	if err != nil {
		log.Warn("Invalid product_id query parameter", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "invalid product_id query parameter")
		return
	}
	canReview, err := h.reviewService.CanUserReview(c.Request.Context(), userID, productID)
	if err != nil {
		log.Error("Failed to check if user can review", zap.Int64("product_id", productID), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to check if user can review")
		return
	}
	c.JSON(http.StatusOK, dto.FromCanReviewDomain(canReview))
}

func (h *Handler) GetProductRating(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	productID, err := parseIDQuery(c, "product_id")
	if err != nil {
		log.Warn("Invalid product_id query parameter", zap.Error(err))
		h.responseError(c, http.StatusBadRequest, codeParametersIncorrect, "invalid product_id query parameter")
		return
	}
	rating, err := h.ratingService.GetProductRating(c.Request.Context(), productID)
	if err != nil {
		log.Error("Failed to get product rating", zap.Int64("product_id", productID), zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "failed to get product rating")
		return
	}
	c.JSON(http.StatusOK, dto.FromProductRatingDomain(rating))
}

func (h *Handler) GetStats(c *gin.Context) {
	log := c.MustGet(middleware.ContextLogger).(*zap.Logger)
	log.Info("Handling get statistics request")

	stats, err := h.ratingService.GetReviewStats(c.Request.Context())
	if err != nil {
		log.Error("Failed to get stats from service", zap.Error(err))
		h.responseError(c, http.StatusInternalServerError, codeInternalError, "could not retrieve statistics")
		return
	}
	c.JSON(http.StatusOK, dto.FromReviewStatsDomain(stats))
}

func parseIDQuery(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Query(name), 10, 64)
}

func (h *Handler) responseError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error: dto.ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}
