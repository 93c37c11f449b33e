package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"proplens/models"
)

// PostgresStore is the persistence collaborator: it maps unified
// listings into durable rows keyed (session_id, listing_id, source).
// The scraping core never touches it.
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

// SaveListings upserts every listing of a session. Rows are keyed by
// (session_id, listing_id, source) so re-running a search refreshes
// rather than duplicates.
func (s *PostgresStore) SaveListings(ctx context.Context, sessionID uuid.UUID, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	query := `
		INSERT INTO scraped_listings (
			session_id, listing_id, source, url, title, description,
			address, city, postcode, region, country, latitude, longitude,
			bedrooms, bathrooms, property_type, tenure,
			price_amount, price_currency, price_type, is_under_offer, is_sold,
			images, floor_plans, virtual_tour_url, raw_data,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW(), NOW()
		)
		ON CONFLICT (session_id, listing_id, source) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			postcode = EXCLUDED.postcode,
			region = EXCLUDED.region,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			property_type = EXCLUDED.property_type,
			tenure = EXCLUDED.tenure,
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			price_type = EXCLUDED.price_type,
			is_under_offer = EXCLUDED.is_under_offer,
			is_sold = EXCLUDED.is_sold,
			images = EXCLUDED.images,
			floor_plans = EXCLUDED.floor_plans,
			virtual_tour_url = EXCLUDED.virtual_tour_url,
			raw_data = EXCLUDED.raw_data,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for i := range listings {
		l := &listings[i]
		batch.Queue(query,
			sessionID, l.ID, l.Source, l.URL, l.Title, l.Description,
			l.Location.Address, l.Location.City, l.Location.Postcode,
			l.Location.Region, l.Location.Country, l.Location.Latitude, l.Location.Longitude,
			l.Features.Bedrooms, l.Features.Bathrooms, l.Features.PropertyType, l.Features.Tenure,
			l.Price.Amount, l.Price.Currency, l.Price.Type, l.Price.UnderOffer, l.Price.Sold,
			l.Images, l.FloorPlans, l.VirtualTourURL, l.RawData,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range listings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save listing: %w", err)
		}
	}
	return nil
}

// ListingsBySession loads the saved listings of one session, price
// ascending, mirroring the order the controller returned them in.
func (s *PostgresStore) ListingsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Listing, error) {
	query := `
		SELECT listing_id, source, url, title, description,
			address, city, postcode, region, country, latitude, longitude,
			bedrooms, bathrooms, property_type, tenure,
			price_amount, price_currency, price_type, is_under_offer, is_sold,
			images, floor_plans, virtual_tour_url, raw_data, updated_at
		FROM scraped_listings
		WHERE session_id = $1
		ORDER BY price_amount ASC`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		var updatedAt time.Time
		err := rows.Scan(
			&l.ID, &l.Source, &l.URL, &l.Title, &l.Description,
			&l.Location.Address, &l.Location.City, &l.Location.Postcode,
			&l.Location.Region, &l.Location.Country, &l.Location.Latitude, &l.Location.Longitude,
			&l.Features.Bedrooms, &l.Features.Bathrooms, &l.Features.PropertyType, &l.Features.Tenure,
			&l.Price.Amount, &l.Price.Currency, &l.Price.Type, &l.Price.UnderOffer, &l.Price.Sold,
			&l.Images, &l.FloorPlans, &l.VirtualTourURL, &l.RawData, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.LastUpdated = &updatedAt
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
