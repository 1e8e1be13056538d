// Package gate implements the license authorization predicate that fronts
// every gated endpoint. It is re-evaluated on each request so that license
// deactivation takes effect immediately.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/errcode"
)

// Gate answers allow/deny for (license key, capability) pairs.
type Gate struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New constructs a Gate.
func New(db *gorm.DB, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{db: db, logger: logger}
}

// Authorize returns nil when rawKey names an active license granting
// capability. Every deny branch returns the same errcode.ErrForbidden so
// callers cannot distinguish an unknown key from an inactive one; the
// distinction only reaches the log.
func (g *Gate) Authorize(ctx context.Context, rawKey, capability string) error {
	key, err := uuid.Parse(rawKey)
	if err != nil {
		g.logger.Info("gate deny: malformed license key", slog.String("capability", capability))
		return errcode.ErrForbidden
	}

	var license database.License
	err = g.db.WithContext(ctx).Preload("Apis").Where("key = ?", key).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g.logger.Info("gate deny: unknown license", slog.String("capability", capability))
			return errcode.ErrForbidden
		}
		return fmt.Errorf("lookup license: %w", err)
	}

	if !license.Active {
		g.logger.Info("gate deny: inactive license",
			slog.String("license", license.Name),
			slog.String("capability", capability),
		)
		return errcode.ErrForbidden
	}

	for _, api := range license.Apis {
		if api.Name == capability {
			return nil
		}
	}

	g.logger.Info("gate deny: capability not granted",
		slog.String("license", license.Name),
		slog.String("capability", capability),
	)
	return errcode.ErrForbidden
}
