package service

import (
	"math"

	"econet/internal/domain"
)

// CalculateRating вычисляет средние оценки продукта по его агрегату.
// Округление (до одного знака, половина вверх) применяется только здесь,
// на границе чтения; сам агрегат хранит точные суммы. Общая оценка - среднее
// четырех неокругленных средних, округленное один раз.
func CalculateRating(productID int64, record *domain.AggregateRecord) domain.ProductRating {
	rating := domain.ProductRating{ProductID: productID}
	if record == nil || record.ReviewCount == 0 {
		return rating
	}

	count := float64(record.ReviewCount)
	effectiveness := record.SumEffectiveness / count
	priceValue := record.SumPriceValue / count
	easeOfUse := record.SumEaseOfUse / count
	quality := record.SumQuality / count

	rating.Effectiveness = roundHalfUp1(effectiveness)
	rating.PriceValue = roundHalfUp1(priceValue)
	rating.EaseOfUse = roundHalfUp1(easeOfUse)
	rating.Quality = roundHalfUp1(quality)
	rating.Overall = roundHalfUp1((effectiveness + priceValue + easeOfUse + quality) / 4)
	rating.ReviewCount = record.ReviewCount
	return rating
}

// roundHalfUp1 округляет до одного десятичного знака, 0.05 -> 0.1.
func roundHalfUp1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
