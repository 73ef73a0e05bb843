// Package bootstrap wires the process-wide dependencies shared by the server
// and the operational commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stackit/internal/cache"
	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedOfficialTags upserts the embedded official tag catalogue.
	SeedOfficialTags bool
}

// InitRuntime connects to the database and Redis, ensures the development
// root admin and optionally seeds the official tags. The Redis client is nil
// when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := observability.RegisterGormMetrics(db); err != nil {
		middleware.Logger.Warn("gorm metrics unavailable", slog.String("error", err.Error()))
	}

	cache.InitRedis(cfg.RedisURL)

	if err := EnsureRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedOfficialTags {
		n, err := seed.OfficialTags(ctx, db)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed official tags: %w", err)
		}
		if n > 0 {
			middleware.Logger.Info("official tags seeded", slog.Int("created", n))
		}
	}

	return db, cache.GetClient(), nil
}

// EnsureRootAdmin creates (or promotes) the development root admin when
// DEV_BOOTSTRAP_ROOT is set in the development environment.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "stackit_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@stackit.local"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("LOWER(email) = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash root password: %w", err)
			}
			root = models.User{
				Username:      username,
				Email:         email,
				Password:      string(hashed),
				Role:          models.RoleAdmin,
				EmailVerified: true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		case root.Role != models.RoleAdmin:
			return tx.Model(&root).Update("role", models.RoleAdmin).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.String("email", email))
	return nil
}
