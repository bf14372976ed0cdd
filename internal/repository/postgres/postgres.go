package postgres

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"time"

	"econet/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

type RatingRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Store объединяет репозитории и выполняет операции, которые должны
// затрагивать отзывы и агрегаты в одной транзакции.
type Store struct {
	pool *pgxpool.Pool
	ReviewRepository
	RatingRepository
	log *zap.Logger
}

func NewStore(ctx context.Context, user string, password string, host string, port string, dbname string, sslmode string, log *zap.Logger) (*Store, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)

	log = log.With(zap.String("dbname", dbname),
		zap.String("host:port", fmt.Sprintf("%s:%s", host, port)),
		zap.String("user", user),
	)

	log.Info("Connecting to PostgreSQL")

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Error("Error parsing connection string", zap.Error(err))
		return nil, fmt.Errorf("error parsing connection string: %w", err)
	}
	config.MaxConns = 50
	config.HealthCheckPeriod = 30 * time.Second
	config.MinConns = 2

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		log.Error("Failed connecting to PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}

	log.Info("Testing database connection")
	if err := db.Ping(ctx); err != nil {
		log.Error("failed pinging PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("failed pinging PostgreSQL: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL")

	log.Info("Starting database migrations")

	if err := runMigrations(connStr); err != nil {
		log.Error("Failed to run migrations", zap.Error(err))
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}

	log.Info("Successfully migrated database")

	return &Store{
		pool:             db,
		ReviewRepository: ReviewRepository{pool: db, log: log},
		RatingRepository: RatingRepository{pool: db, log: log},
		log:              log.Named("Repository"),
	}, nil
}

// NewStoreWithPool создает Store поверх готового пула, миграции не запускаются.
// Используется в тестах.
func NewStoreWithPool(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{
		pool:             pool,
		ReviewRepository: ReviewRepository{pool: pool, log: log},
		RatingRepository: RatingRepository{pool: pool, log: log},
		log:              log.Named("Repository"),
	}
}

// CreateReviewTx вставляет отзыв и добавляет его оценки к агрегату продукта
// в одной атомарной транзакции. Проверка "один отзыв на продукт" выполняется
// внутри той же транзакции, уникальный индекс - последняя линия защиты.
func (s *Store) CreateReviewTx(ctx context.Context, review *domain.Review) (int64, error) {
	log := s.log.With(
		zap.String("user_id", review.UserID.String()),
		zap.Int64("product_id", review.ProductID),
	)
	log.Debug("Creating review in a transaction")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error("Failed to rollback transaction", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRow(ctx, existsReviewQuery, review.UserID, review.ProductID).Scan(&exists); err != nil {
		log.Error("Failed to check review existence within transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to check review existence: %w", err)
	}
	if exists {
		log.Warn("User has already reviewed this product")
		return 0, domain.ErrAlreadyReviewed
	}

	id, err := insertReviewTx(ctx, tx, review)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			log.Warn("Unique constraint rejected duplicate review")
			return 0, domain.ErrAlreadyReviewed
		}
		log.Error("Failed to insert review within transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to insert review: %w", err)
	}

	if _, err := tx.Exec(ctx, upsertAddRatingQuery,
		review.ProductID,
		review.Scores.Effectiveness,
		review.Scores.PriceValue,
		review.Scores.EaseOfUse,
		review.Scores.Quality,
	); err != nil {
		log.Error("Failed to upsert product rating within transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to upsert product rating: %w", err)
	}

	log.Debug("Committing transaction for review creation")
	if err := tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// UpdateReviewTx применяет частичное обновление отзыва и корректирует агрегат
// продукта на разницу старых и новых оценок в одной транзакции.
// Строка отзыва блокируется через SELECT ... FOR UPDATE.
func (s *Store) UpdateReviewTx(ctx context.Context, reviewID int64, userID uuid.UUID, patch domain.ReviewPatch) error {
	log := s.log.With(
		zap.Int64("review_id", reviewID),
		zap.String("user_id", userID.String()),
	)
	log.Debug("Updating review in a transaction")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error("Failed to rollback transaction", zap.Error(err))
		}
	}()

	old, ownerID, err := lockReviewTx(ctx, tx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Review not found")
			return domain.ErrNotFound
		}
		log.Error("Failed to lock review row", zap.Error(err))
		return fmt.Errorf("failed to lock review row: %w", err)
	}
	if ownerID != userID {
		log.Warn("Review belongs to another user", zap.String("owner_id", ownerID.String()))
		return domain.ErrForbidden
	}

	if err := updateReviewTx(ctx, tx, reviewID, patch); err != nil {
		log.Error("Failed to update review within transaction", zap.Error(err))
		return fmt.Errorf("failed to update review: %w", err)
	}

	delta := patch.DeltaFrom(old.Scores)
	if !delta.IsZero() {
		if _, err := tx.Exec(ctx, adjustRatingQuery,
			old.ProductID,
			delta.Effectiveness,
			delta.PriceValue,
			delta.EaseOfUse,
			delta.Quality,
			0,
		); err != nil {
			log.Error("Failed to adjust product rating within transaction", zap.Error(err))
			return fmt.Errorf("failed to adjust product rating: %w", err)
		}
	}

	log.Debug("Committing transaction for review update")
	if err := tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteReviewTx удаляет отзыв и вычитает его оценки из агрегата продукта
// в одной транзакции. Повторное удаление не трогает агрегат: строка уже
// отсутствует и операция завершается domain.ErrNotFound.
func (s *Store) DeleteReviewTx(ctx context.Context, reviewID int64, userID uuid.UUID, isAdmin bool) error {
	log := s.log.With(
		zap.Int64("review_id", reviewID),
		zap.String("user_id", userID.String()),
	)
	log.Debug("Deleting review in a transaction")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error("Failed to rollback transaction", zap.Error(err))
		}
	}()

	old, ownerID, err := lockReviewTx(ctx, tx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Review not found")
			return domain.ErrNotFound
		}
		log.Error("Failed to lock review row", zap.Error(err))
		return fmt.Errorf("failed to lock review row: %w", err)
	}
	if !isAdmin && ownerID != userID {
		log.Warn("Review belongs to another user", zap.String("owner_id", ownerID.String()))
		return domain.ErrForbidden
	}

	if err := deleteReviewTx(ctx, tx, reviewID); err != nil {
		log.Error("Failed to delete review within transaction", zap.Error(err))
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if _, err := tx.Exec(ctx, adjustRatingQuery,
		old.ProductID,
		-old.Scores.Effectiveness,
		-old.Scores.PriceValue,
		-old.Scores.EaseOfUse,
		-old.Scores.Quality,
		-1,
	); err != nil {
		log.Error("Failed to adjust product rating within transaction", zap.Error(err))
		return fmt.Errorf("failed to adjust product rating: %w", err)
	}

	log.Debug("Committing transaction for review deletion")
	if err := tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.log.Info("Closing database connection")
	s.pool.Close()
}

func runMigrations(connStr string) error {
	migratePath := os.Getenv("MIGRATE_PATH")
	if migratePath == "" {
		migratePath = "./migrations"
	}
	absPath, err := filepath.Abs(migratePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	absPath = filepath.ToSlash(absPath)
	migrateUrl := fmt.Sprintf("file://%s", absPath)
	m, err := migrate.New(migrateUrl, connStr)
	if err != nil {
		return fmt.Errorf("start migrations error %v", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration up error: %v", err)
	}
	return nil
}
