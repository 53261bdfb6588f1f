package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"padwatch/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Alerts
// =============================================================================

const alertColumns = `id, user_id, name, neighborhoods, min_price, max_price,
	min_beds, max_beds, min_baths, no_fee_only, stabilized_only,
	notify_email, notify_sms, new_only, is_active, last_checked, frequency,
	created_at, updated_at`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Neighborhoods, &a.MinPrice, &a.MaxPrice,
		&a.MinBeds, &a.MaxBeds, &a.MinBaths, &a.NoFeeOnly, &a.StabilizedOnly,
		&a.NotifyEmail, &a.NotifySMS, &a.NewOnly, &a.IsActive, &a.LastChecked, &a.Frequency,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE is_active ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	a, err := scanAlert(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ClaimAlertCheck advances last_checked from its previously observed value
// to now. Compare-and-swap: a false return means another run claimed the
// alert since we loaded it, and this run must leave it alone.
func (s *PostgresStore) ClaimAlertCheck(ctx context.Context, id uuid.UUID, prev *time.Time, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET last_checked = $3, updated_at = NOW()
		 WHERE id = $1 AND last_checked IS NOT DISTINCT FROM $2`,
		id, prev, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// =============================================================================
// Users & entitlements (owned by the web app; read-only here)
// =============================================================================

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, phone FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Phone)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetActiveEntitlements(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.EntitlementPeriod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, tier, expires_at, created_at
		 FROM entitlements WHERE user_id = $1 AND expires_at > $2`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []models.EntitlementPeriod
	for rows.Next() {
		var p models.EntitlementPeriod
		if err := rows.Scan(&p.ID, &p.UserID, &p.Tier, &p.ExpiresAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// =============================================================================
// Listings
// =============================================================================

const listingColumns = `id, source, external_id, fingerprint, address, unit,
	neighborhood, price, bedrooms, bathrooms, sqft, no_fee, url, image_url,
	lat, lng, stabilization_status, stabilization_probability,
	stabilization_checked_at, stabilization_attempts, building_id,
	first_seen, last_seen, is_active`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.Source, &l.ExternalID, &l.Fingerprint, &l.Address, &l.Unit,
		&l.Neighborhood, &l.Price, &l.Bedrooms, &l.Bathrooms, &l.SqFt, &l.NoFee, &l.URL, &l.ImageURL,
		&l.Lat, &l.Lng, &l.StabilizationStatus, &l.StabilizationProbability,
		&l.StabilizationCheckedAt, &l.StabilizationAttempts, &l.BuildingID,
		&l.FirstSeen, &l.LastSeen, &l.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpsertListing inserts a freshly observed listing or refreshes an existing
// one keyed by (source, external_id). Stabilization fields and first_seen
// are owned by the existing row; the struct is updated in place with the
// stored values so callers see the current evaluation state.
// UpsertListing inserts or refreshes a listing row, folding the stored
// identity and stabilization state back into l. The returned flag reports
// whether the row was newly inserted (xmax = 0 only holds for rows no
// update has touched).
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing) (bool, error) {
	query := `
		INSERT INTO listings (
			id, source, external_id, fingerprint, address, unit, neighborhood,
			price, bedrooms, bathrooms, sqft, no_fee, url, image_url, lat, lng,
			stabilization_status, first_seen, last_seen, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, TRUE
		)
		ON CONFLICT (source, external_id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			address = EXCLUDED.address,
			unit = EXCLUDED.unit,
			neighborhood = EXCLUDED.neighborhood,
			price = EXCLUDED.price,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			sqft = COALESCE(EXCLUDED.sqft, listings.sqft),
			no_fee = EXCLUDED.no_fee,
			url = EXCLUDED.url,
			image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), listings.image_url),
			lat = COALESCE(EXCLUDED.lat, listings.lat),
			lng = COALESCE(EXCLUDED.lng, listings.lng),
			last_seen = EXCLUDED.last_seen,
			is_active = TRUE
		RETURNING id, stabilization_status, stabilization_probability,
			stabilization_checked_at, stabilization_attempts, building_id, first_seen,
			(xmax = 0) AS inserted`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		l.ID, l.Source, l.ExternalID, l.Fingerprint, l.Address, l.Unit, l.Neighborhood,
		l.Price, l.Bedrooms, l.Bathrooms, l.SqFt, l.NoFee, l.URL, l.ImageURL, l.Lat, l.Lng,
		l.StabilizationStatus, l.FirstSeen, l.LastSeen,
	).Scan(
		&l.ID, &l.StabilizationStatus, &l.StabilizationProbability,
		&l.StabilizationCheckedAt, &l.StabilizationAttempts, &l.BuildingID, &l.FirstSeen,
		&inserted,
	)
	return inserted, err
}

func (s *PostgresStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateListingStabilization stores a fresh stabilization evaluation.
func (s *PostgresStore) UpdateListingStabilization(ctx context.Context, id uuid.UUID, status models.StabilizationStatus, probability *float64, buildingID *string, checkedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings SET
			stabilization_status = $2,
			stabilization_probability = $3,
			building_id = COALESCE($4, building_id),
			stabilization_checked_at = $5
		 WHERE id = $1`,
		id, status, probability, buildingID, checkedAt,
	)
	return err
}

func (s *PostgresStore) IncrementStabilizationAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings SET stabilization_attempts = stabilization_attempts + 1 WHERE id = $1`, id)
	return err
}

// GetStabilizationPending returns active listings with coordinates that
// have never been scored, oldest first, for the backfill worker.
func (s *PostgresStore) GetStabilizationPending(ctx context.Context, limit int) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE is_active AND stabilization_status = 'unknown'
		  AND lat IS NOT NULL AND lng IS NOT NULL
		  AND stabilization_attempts < 3
		ORDER BY first_seen
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// GetStaleActiveListings returns active listings not seen in a fresh fetch
// for longer than staleDuration, for the liveness worker.
func (s *PostgresStore) GetStaleActiveListings(ctx context.Context, staleDuration time.Duration, limit int) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE is_active AND last_seen < $1
		ORDER BY last_seen
		LIMIT $2`

	staleTime := time.Now().Add(-staleDuration)
	rows, err := s.pool.Query(ctx, query, staleTime, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) MarkListingInactive(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE listings SET is_active = FALSE WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) TouchListing(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE listings SET last_seen = $2 WHERE id = $1`, id, seenAt)
	return err
}

// =============================================================================
// Notifications (dedup store)
// =============================================================================

func (s *PostgresStore) HasNotified(ctx context.Context, alertID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE alert_id = $1 AND listing_id = $2)`,
		alertID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// MarkNotified records the (alert, listing) pair. Idempotent: the unique
// constraint makes a repeated mark a no-op, and overlapping runs cannot
// both insert. Returns whether this call created the record.
func (s *PostgresStore) MarkNotified(ctx context.Context, rec *models.NotificationRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (alert_id, listing_id, channels, sent_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (alert_id, listing_id) DO NOTHING`,
		rec.AlertID, rec.ListingID, rec.Channels, rec.SentAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// =============================================================================
// Check runs & logs
// =============================================================================

func (s *PostgresStore) CreateCheckRun(ctx context.Context, run *models.CheckRun) error {
	query := `
		INSERT INTO check_runs (started_at, status)
		VALUES ($1, $2)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, run.StartedAt, run.Status).Scan(&run.ID)
}

func (s *PostgresStore) UpdateCheckRun(ctx context.Context, run *models.CheckRun) error {
	query := `
		UPDATE check_runs SET
			finished_at = $2, status = $3, alerts_processed = $4, alerts_skipped = $5,
			listings_fetched = $6, listings_matched = $7, notifications_sent = $8,
			errors_count = $9, error_samples = $10
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, run.Status, run.AlertsProcessed, run.AlertsSkipped,
		run.ListingsFetched, run.ListingsMatched, run.NotificationsSent,
		run.ErrorsCount, run.ErrorSamples,
	)
	return err
}

func (s *PostgresStore) CreateCheckLog(ctx context.Context, l *models.CheckLog) error {
	query := `
		INSERT INTO check_logs (run_id, timestamp, level, message, alert_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		l.RunID, l.Timestamp, l.Level, l.Message, l.AlertID,
	).Scan(&l.ID)
}
