package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound означает, что какой-то элемент не был найден в базе данных
	ErrNotFound = errors.New("not found")

	// ErrOneOfParametersNil означает, что один из обязательных параметров,
	// переданных в метод сервиса, был пустым
	ErrOneOfParametersNil = errors.New("one of parameters is nil")

	// ErrAlreadyReviewed означает, что пользователь уже оставил отзыв на этот продукт
	ErrAlreadyReviewed = errors.New("user has already reviewed this product")

	// ErrForbidden означает, что пользователь не владеет отзывом и не является админом
	ErrForbidden = errors.New("review does not belong to user")

	// ErrInvalidScore означает, что оценка вне диапазона [0;5] или не кратна 0.5
	ErrInvalidScore = errors.New("score must be between 0 and 5 in half-point steps")

	// ErrInvalidDescription означает, что текст отзыва короче 10 или длиннее 1000 символов
	ErrInvalidDescription = errors.New("description must be between 10 and 1000 characters")

	// ErrEmptyUpdate означает, что в запросе на обновление не было ни одного поля
	ErrEmptyUpdate = errors.New("nothing to update")
)

const (
	ScoreMin = 0.0
	ScoreMax = 5.0

	DescriptionMinLength = 10
	DescriptionMaxLength = 1000
)

// Scores - четыре критерия одного отзыва.
type Scores struct {
	Effectiveness float64
	PriceValue    float64
	EaseOfUse     float64
	Quality       float64
}

// Review - отзыв одного пользователя на один продукт.
type Review struct {
	ID                  int64
	UserID              uuid.UUID
	ProductID           int64
	Description         *string
	Scores              Scores
	OverallSatisfaction *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ReviewPatch - частичное обновление отзыва: nil-поля остаются без изменений.
type ReviewPatch struct {
	Description   *string
	Effectiveness *float64
	PriceValue    *float64
	EaseOfUse     *float64
	Quality       *float64
}

// IsEmpty сообщает, что патч не меняет ни одного поля.
func (p ReviewPatch) IsEmpty() bool {
	return p.Description == nil &&
		p.Effectiveness == nil &&
		p.PriceValue == nil &&
		p.EaseOfUse == nil &&
		p.Quality == nil
}

// DeltaFrom возвращает разницу между новыми оценками патча и старыми:
// критерии, которых нет в патче, дают нулевую дельту.
func (p ReviewPatch) DeltaFrom(old Scores) Scores {
	var d Scores
	if p.Effectiveness != nil {
		d.Effectiveness = *p.Effectiveness - old.Effectiveness
	}
	if p.PriceValue != nil {
		d.PriceValue = *p.PriceValue - old.PriceValue
	}
	if p.EaseOfUse != nil {
		d.EaseOfUse = *p.EaseOfUse - old.EaseOfUse
	}
	if p.Quality != nil {
		d.Quality = *p.Quality - old.Quality
	}
	return d
}

// IsZero сообщает, что дельта не меняет ни одной суммы.
func (s Scores) IsZero() bool {
	return s.Effectiveness == 0 && s.PriceValue == 0 && s.EaseOfUse == 0 && s.Quality == 0
}

// AggregateRecord - бегущие суммы критериев по одному продукту.
// Суммы хранятся точно, округление применяется только при чтении.
type AggregateRecord struct {
	ProductID        int64
	SumEffectiveness float64
	SumPriceValue    float64
	SumEaseOfUse     float64
	SumQuality       float64
	ReviewCount      int
}

// ProductRating - средние оценки продукта, округленные до одного знака.
type ProductRating struct {
	ProductID     int64
	Effectiveness float64
	PriceValue    float64
	EaseOfUse     float64
	Quality       float64
	Overall       float64
	ReviewCount   int
}

// ReviewStats - сводная статистика по всем отзывам.
type ReviewStats struct {
	TotalReviews  int
	GlobalAverage float64
	Distribution  RatingDistribution
}

// RatingDistribution - распределение отзывов по средней оценке отзыва.
type RatingDistribution struct {
	Excellent int // 4.5 - 5.0
	Good      int // 3.5 - 4.4
	Regular   int // 2.5 - 3.4
	Poor      int // 1.5 - 2.4
	VeryPoor  int // < 1.5
}

// CanReview - результат проверки, может ли пользователь оставить отзыв.
type CanReview struct {
	CanReview bool
	Reason    string
}
