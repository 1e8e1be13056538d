// Package visit aggregates gated website visits into per-location counters.
package visit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mainsite/internal/database"
	"mainsite/internal/geoip"
)

// Aggregator records visits against a website and its locations.
type Aggregator struct {
	db       *gorm.DB
	resolver geoip.Resolver
	logger   *slog.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(db *gorm.DB, resolver geoip.Resolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{db: db, resolver: resolver, logger: logger}
}

// RecordVisit resolves callerIP, upserts the matching Location row and bumps
// both counters. A failed geo lookup does not drop the visit: it lands in an
// "unknown" bucket keyed by the raw caller IP, and the lookup error is only
// logged.
//
// Both increments are expression updates so concurrent visits cannot lose
// counts, and the location upsert targets the tuple's unique index so
// concurrent first visits cannot create duplicate rows.
func (a *Aggregator) RecordVisit(ctx context.Context, website *database.Website, callerIP string) error {
	geo, err := a.resolver.Resolve(ctx, callerIP)
	if err != nil {
		a.logger.Warn("geoip lookup failed, using unknown location",
			slog.String("ip", callerIP),
			slog.Any("error", err),
		)
		geo = &geoip.Data{Query: callerIP}
	}

	location := database.Location{
		WebsiteID:   website.ID,
		Country:     geo.Country,
		City:        geo.City,
		Zip:         geo.Zip,
		IPAddress:   geo.Query,
		TotalVisits: 1,
		Raw:         datatypes.JSON(geo.Raw),
	}

	err = a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "website_id"},
			{Name: "country"},
			{Name: "city"},
			{Name: "zip"},
			{Name: "ip_address"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_visits": gorm.Expr("total_visits + 1"),
			"updated_at":   time.Now(),
		}),
	}).Create(&location).Error
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}

	err = a.db.WithContext(ctx).Model(&database.Website{}).
		Where("id = ?", website.ID).
		UpdateColumns(map[string]interface{}{
			"total_visits": gorm.Expr("total_visits + 1"),
			"last_visit":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("bump website counter: %w", err)
	}

	return nil
}
