package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// SubscriptionRepository - реестр подписок поверх Postgres.
// Атомарность Rearm/Deactivate по одному id обеспечивают одиночные
// UPDATE с условием active, без явных транзакций.
type SubscriptionRepository struct {
	db      *DB
	tracked domain.PairSet
	logger  *slog.Logger
}

func NewSubscriptionRepository(db *DB, tracked domain.PairSet, logger *slog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:      db,
		tracked: tracked,
		logger:  logger,
	}
}

// --- Implementation of SubscriptionRegistry ---

func (r *SubscriptionRepository) Create(ctx context.Context, subscriberID int64, pair string, direction domain.Direction, thresholdPercent, baselineRate decimal.Decimal) (*domain.Subscription, error) {
	if err := domain.ValidateSubscriptionInput(pair, direction, thresholdPercent, r.tracked); err != nil {
		return nil, err
	}

	sub := &domain.Subscription{
		ID:               uuid.New(),
		SubscriberID:     subscriberID,
		Pair:             pair,
		Direction:        direction,
		ThresholdPercent: thresholdPercent,
		BaselineRate:     baselineRate,
		Active:           true,
	}

	query := `
		INSERT INTO subscriptions (
			id, subscriber_id, pair, direction, threshold_percent,
			baseline_rate, baseline_at, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), TRUE, NOW())
		RETURNING baseline_at, created_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		sub.ID, sub.SubscriberID, sub.Pair, string(sub.Direction),
		sub.ThresholdPercent, sub.BaselineRate,
	).Scan(&sub.BaselineAt, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

func (r *SubscriptionRepository) ListActiveForPair(ctx context.Context, pair string) ([]domain.Subscription, error) {
	query := `
		SELECT id, subscriber_id, pair, direction, threshold_percent,
			   baseline_rate, baseline_at, active, created_at
		FROM subscriptions
		WHERE pair = $1 AND active
		ORDER BY created_at
	`
	return r.queryList(ctx, query, pair)
}

func (r *SubscriptionRepository) ListActiveForSubscriber(ctx context.Context, subscriberID int64) ([]domain.Subscription, error) {
	query := `
		SELECT id, subscriber_id, pair, direction, threshold_percent,
			   baseline_rate, baseline_at, active, created_at
		FROM subscriptions
		WHERE subscriber_id = $1 AND active
		ORDER BY created_at
	`
	return r.queryList(ctx, query, subscriberID)
}

// Rearm двигает базу подписки. Ноль затронутых строк при живой записи
// означает конкурентную деактивацию - это штатный no-op.
func (r *SubscriptionRepository) Rearm(ctx context.Context, id uuid.UUID, newBaselineRate decimal.Decimal, newBaselineAt time.Time) error {
	query := `
		UPDATE subscriptions
		SET baseline_rate = $2, baseline_at = $3
		WHERE id = $1 AND active
	`

	result, err := r.db.ExecContext(ctx, query, id, newBaselineRate, newBaselineAt)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("db scan error: %w", err)
	}
	if !exists {
		return domain.ErrSubscriptionNotFound
	}

	// Подписку успели деактивировать - базу не трогаем
	r.logger.Debug("Rearm skipped: subscription deactivated concurrently",
		slog.String("id", id.String()))
	return nil
}

func (r *SubscriptionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE subscriptions SET active = FALSE WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

// Helpers

func (r *SubscriptionRepository) queryList(ctx context.Context, query string, arg any) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanSubscription(rows *sql.Rows) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	var direction string

	err := rows.Scan(
		&sub.ID, &sub.SubscriberID, &sub.Pair, &direction, &sub.ThresholdPercent,
		&sub.BaselineRate, &sub.BaselineAt, &sub.Active, &sub.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan row error: %w", err)
	}

	sub.Direction = domain.Direction(direction)
	return sub, nil
}
