package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"econet/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore повторяет атомарный контракт Store в памяти: каждый *Tx-метод
// меняет отзывы и агрегаты под одним мьютексом.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	reviews map[int64]*domain.Review
	ledger  map[int64]*domain.AggregateRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:  1,
		reviews: make(map[int64]*domain.Review),
		ledger:  make(map[int64]*domain.AggregateRecord),
	}
}

func (f *fakeStore) CreateReviewTx(_ context.Context, review *domain.Review) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.reviews {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return 0, domain.ErrAlreadyReviewed
		}
	}

	stored := *review
	stored.ID = f.nextID
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	f.nextID++
	f.reviews[stored.ID] = &stored

	record, ok := f.ledger[review.ProductID]
	if !ok {
		record = &domain.AggregateRecord{ProductID: review.ProductID}
		f.ledger[review.ProductID] = record
	}
	record.SumEffectiveness += review.Scores.Effectiveness
	record.SumPriceValue += review.Scores.PriceValue
	record.SumEaseOfUse += review.Scores.EaseOfUse
	record.SumQuality += review.Scores.Quality
	record.ReviewCount++

	return stored.ID, nil
}

func (f *fakeStore) UpdateReviewTx(_ context.Context, reviewID int64, userID uuid.UUID, patch domain.ReviewPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	review, ok := f.reviews[reviewID]
	if !ok {
		return domain.ErrNotFound
	}
	if review.UserID != userID {
		return domain.ErrForbidden
	}

	delta := patch.DeltaFrom(review.Scores)
	if patch.Description != nil {
		review.Description = patch.Description
	}
	if patch.Effectiveness != nil {
		review.Scores.Effectiveness = *patch.Effectiveness
	}
	if patch.PriceValue != nil {
		review.Scores.PriceValue = *patch.PriceValue
	}
	if patch.EaseOfUse != nil {
		review.Scores.EaseOfUse = *patch.EaseOfUse
	}
	if patch.Quality != nil {
		review.Scores.Quality = *patch.Quality
	}
	review.UpdatedAt = time.Now().UTC()

	record := f.ledger[review.ProductID]
	record.SumEffectiveness += delta.Effectiveness
	record.SumPriceValue += delta.PriceValue
	record.SumEaseOfUse += delta.EaseOfUse
	record.SumQuality += delta.Quality

	return nil
}

func (f *fakeStore) DeleteReviewTx(_ context.Context, reviewID int64, userID uuid.UUID, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	review, ok := f.reviews[reviewID]
	if !ok {
		return domain.ErrNotFound
	}
	if !isAdmin && review.UserID != userID {
		return domain.ErrForbidden
	}
	delete(f.reviews, reviewID)

	record := f.ledger[review.ProductID]
	record.SumEffectiveness -= review.Scores.Effectiveness
	record.SumPriceValue -= review.Scores.PriceValue
	record.SumEaseOfUse -= review.Scores.EaseOfUse
	record.SumQuality -= review.Scores.Quality
	record.ReviewCount--

	return nil
}

func (f *fakeStore) GetReviewByID(_ context.Context, id int64) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *review
	return &copied, nil
}

func (f *fakeStore) HasReviewed(_ context.Context, userID uuid.UUID, productID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, review := range f.reviews {
		if review.UserID == userID && review.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetReviewsByProduct(_ context.Context, productID int64) ([]*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reviews []*domain.Review
	for _, review := range f.reviews {
		if review.ProductID == productID {
			copied := *review
			reviews = append(reviews, &copied)
		}
	}
	return reviews, nil
}

func (f *fakeStore) GetReviewsByUser(_ context.Context, userID uuid.UUID) ([]*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reviews []*domain.Review
	for _, review := range f.reviews {
		if review.UserID == userID {
			copied := *review
			reviews = append(reviews, &copied)
		}
	}
	return reviews, nil
}

// GetAggregate позволяет использовать fakeStore и как RatingRepository.
func (f *fakeStore) GetAggregate(_ context.Context, productID int64) (*domain.AggregateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.ledger[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeStore) GetReviewStats(_ context.Context) (*domain.ReviewStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := domain.ReviewStats{}
	var scoreSum float64
	for _, review := range f.reviews {
		stats.TotalReviews++
		scoreSum += review.Scores.Effectiveness + review.Scores.PriceValue + review.Scores.EaseOfUse + review.Scores.Quality
	}
	if stats.TotalReviews > 0 {
		stats.GlobalAverage = scoreSum / float64(stats.TotalReviews*4)
	}
	return &stats, nil
}

func newTestReview(userID uuid.UUID, productID int64, scores domain.Scores) *domain.Review {
	return &domain.Review{
		UserID:    userID,
		ProductID: productID,
		Scores:    scores,
	}
}

func ptr[T any](v T) *T { return &v }

func TestReviewService_CreateReview_Validation(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name    string
		review  *domain.Review
		wantErr error
	}{
		{
			name:    "nil user",
			review:  newTestReview(uuid.Nil, 1, domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}),
			wantErr: domain.ErrOneOfParametersNil,
		},
		{
			name:    "zero product",
			review:  newTestReview(userID, 0, domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}),
			wantErr: domain.ErrOneOfParametersNil,
		},
		{
			name:    "score above range",
			review:  newTestReview(userID, 1, domain.Scores{Effectiveness: 5.5, PriceValue: 4, EaseOfUse: 4, Quality: 4}),
			wantErr: domain.ErrInvalidScore,
		},
		{
			name:    "negative score",
			review:  newTestReview(userID, 1, domain.Scores{Effectiveness: 4, PriceValue: -0.5, EaseOfUse: 4, Quality: 4}),
			wantErr: domain.ErrInvalidScore,
		},
		{
			name:    "not a half point step",
			review:  newTestReview(userID, 1, domain.Scores{Effectiveness: 4.3, PriceValue: 4, EaseOfUse: 4, Quality: 4}),
			wantErr: domain.ErrInvalidScore,
		},
		{
			name: "description too short",
			review: &domain.Review{
				UserID:      userID,
				ProductID:   1,
				Description: ptr("short"),
				Scores:      domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4},
			},
			wantErr: domain.ErrInvalidDescription,
		},
		{
			name: "invalid overall satisfaction",
			review: &domain.Review{
				UserID:              userID,
				ProductID:           1,
				OverallSatisfaction: ptr(7.0),
				Scores:              domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4},
			},
			wantErr: domain.ErrInvalidScore,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.CreateReview(ctx, tc.review)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// ни одна невалидная попытка не должна дойти до хранилища
	assert.Empty(t, store.reviews)
	assert.Empty(t, store.ledger)
}

func TestReviewService_CreateReview_HalfPointScoresAccepted(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())

	review, err := srv.CreateReview(context.Background(),
		newTestReview(uuid.New(), 1, domain.Scores{Effectiveness: 4.5, PriceValue: 0, EaseOfUse: 5, Quality: 2.5}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), review.ID)

	record, err := store.GetAggregate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4.5, record.SumEffectiveness)
	assert.Equal(t, 0.0, record.SumPriceValue)
	assert.Equal(t, 5.0, record.SumEaseOfUse)
	assert.Equal(t, 2.5, record.SumQuality)
	assert.Equal(t, 1, record.ReviewCount)
}

func TestReviewService_CreateReview_Duplicate(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	scores := domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}

	_, err := srv.CreateReview(ctx, newTestReview(userID, 1, scores))
	require.NoError(t, err)

	_, err = srv.CreateReview(ctx, newTestReview(userID, 1, scores))
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)

	// агрегат отражает ровно одно добавление
	record, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, record.ReviewCount)
	assert.Equal(t, 4.0, record.SumEffectiveness)
}

func TestReviewService_CreateReview_ConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	scores := domain.Scores{Effectiveness: 4, PriceValue: 3, EaseOfUse: 5, Quality: 4}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := srv.CreateReview(ctx, newTestReview(userID, 1, scores))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, domain.ErrAlreadyReviewed):
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	record, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, record.ReviewCount)
}

func TestReviewService_UpdateReview_DeltaApplied(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	review, err := srv.CreateReview(ctx,
		newTestReview(userID, 1, domain.Scores{Effectiveness: 3, PriceValue: 4, EaseOfUse: 4, Quality: 4}))
	require.NoError(t, err)

	// effectiveness 3 -> 5: сумма должна вырасти ровно на 2, count не меняется
	err = srv.UpdateReview(ctx, review.ID, userID, domain.ReviewPatch{Effectiveness: ptr(5.0)})
	require.NoError(t, err)

	record, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.SumEffectiveness)
	assert.Equal(t, 4.0, record.SumPriceValue)
	assert.Equal(t, 4.0, record.SumEaseOfUse)
	assert.Equal(t, 4.0, record.SumQuality)
	assert.Equal(t, 1, record.ReviewCount)

	updated, err := srv.GetReviewByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Scores.Effectiveness)
	assert.Equal(t, 4.0, updated.Scores.PriceValue)
}

func TestReviewService_UpdateReview_Errors(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	review, err := srv.CreateReview(ctx,
		newTestReview(owner, 1, domain.Scores{Effectiveness: 3, PriceValue: 3, EaseOfUse: 3, Quality: 3}))
	require.NoError(t, err)

	err = srv.UpdateReview(ctx, review.ID, owner, domain.ReviewPatch{})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)

	err = srv.UpdateReview(ctx, review.ID, owner, domain.ReviewPatch{Quality: ptr(4.25)})
	assert.ErrorIs(t, err, domain.ErrInvalidScore)

	err = srv.UpdateReview(ctx, review.ID, stranger, domain.ReviewPatch{Quality: ptr(4.0)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = srv.UpdateReview(ctx, review.ID+100, owner, domain.ReviewPatch{Quality: ptr(4.0)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// агрегат не изменился ни одной из неудачных попыток
	record, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, record.SumQuality)
	assert.Equal(t, 1, record.ReviewCount)
}

func TestReviewService_DeleteReview_ReversesCreate(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	keeper := uuid.New()
	leaver := uuid.New()

	_, err := srv.CreateReview(ctx,
		newTestReview(keeper, 1, domain.Scores{Effectiveness: 3.5, PriceValue: 2, EaseOfUse: 4, Quality: 5}))
	require.NoError(t, err)

	before, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)

	review, err := srv.CreateReview(ctx,
		newTestReview(leaver, 1, domain.Scores{Effectiveness: 4, PriceValue: 3, EaseOfUse: 5, Quality: 4}))
	require.NoError(t, err)

	err = srv.DeleteReview(ctx, review.ID, leaver, false)
	require.NoError(t, err)

	// создание и удаление возвращают агрегат в точности к прежним значениям
	after, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}

func TestReviewService_DeleteReview_Permissions(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	admin := uuid.New()

	review, err := srv.CreateReview(ctx,
		newTestReview(owner, 1, domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}))
	require.NoError(t, err)

	err = srv.DeleteReview(ctx, review.ID, stranger, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// администратор может удалить чужой отзыв
	err = srv.DeleteReview(ctx, review.ID, admin, true)
	require.NoError(t, err)

	// повторное удаление - NOT FOUND, агрегат не трогается
	err = srv.DeleteReview(ctx, review.ID, admin, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	record, err := store.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, record.ReviewCount)
	assert.Equal(t, 0.0, record.SumEffectiveness)
}

func TestReviewService_CanUserReview(t *testing.T) {
	store := newFakeStore()
	srv := NewReviewService(store, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	canReview, err := srv.CanUserReview(ctx, userID, 1)
	require.NoError(t, err)
	assert.True(t, canReview.CanReview)
	assert.Empty(t, canReview.Reason)

	_, err = srv.CreateReview(ctx,
		newTestReview(userID, 1, domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}))
	require.NoError(t, err)

	canReview, err = srv.CanUserReview(ctx, userID, 1)
	require.NoError(t, err)
	assert.False(t, canReview.CanReview)
	assert.NotEmpty(t, canReview.Reason)
}

// TestReviewService_LedgerScenario прогоняет сквозной сценарий:
// два отзыва, правка, удаление - с проверкой агрегата и средних на каждом шаге.
func TestReviewService_LedgerScenario(t *testing.T) {
	store := newFakeStore()
	reviewSrv := NewReviewService(store, zap.NewNop())
	ratingSrv := NewRatingService(store, zap.NewNop())
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	rating, err := ratingSrv.GetProductRating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &domain.ProductRating{ProductID: 1}, rating)

	reviewA, err := reviewSrv.CreateReview(ctx,
		newTestReview(userA, 1, domain.Scores{Effectiveness: 4, PriceValue: 4, EaseOfUse: 4, Quality: 4}))
	require.NoError(t, err)

	rating, err = ratingSrv.GetProductRating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.Overall)
	assert.Equal(t, 1, rating.ReviewCount)

	reviewB, err := reviewSrv.CreateReview(ctx,
		newTestReview(userB, 1, domain.Scores{Effectiveness: 2, PriceValue: 2, EaseOfUse: 2, Quality: 2}))
	require.NoError(t, err)

	rating, err = ratingSrv.GetProductRating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rating.Overall)
	assert.Equal(t, 2, rating.ReviewCount)

	require.NoError(t, reviewSrv.UpdateReview(ctx, reviewA.ID, userA, domain.ReviewPatch{Effectiveness: ptr(5.0)}))

	rating, err = ratingSrv.GetProductRating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.5, rating.Effectiveness)
	assert.Equal(t, 3.0, rating.PriceValue)
	assert.Equal(t, 3.1, rating.Overall)

	require.NoError(t, reviewSrv.DeleteReview(ctx, reviewB.ID, userB, false))

	rating, err = ratingSrv.GetProductRating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rating.Effectiveness)
	assert.Equal(t, 4.0, rating.PriceValue)
	assert.Equal(t, 4.3, rating.Overall)
	assert.Equal(t, 1, rating.ReviewCount)
}
