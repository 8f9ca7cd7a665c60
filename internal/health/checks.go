package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/balance"
)

// Endpoints are the live connections the checks probe. Probing the server's
// own pools reports what requests actually experience, not whether a fresh
// dial would succeed.
type Endpoints struct {
	DB          *sql.DB
	RedisClient *redis.Client
}

func NewHealthHandler(endpoints *Endpoints) (*health.Health, error) {

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "tienda-storefront",
			Version: "1.0.0",
		}),
		health.WithSystemInfo(),
		health.WithChecks(
			health.Config{
				Name:      "database",
				Timeout:   3 * time.Second,
				SkipOnErr: false,
				Check: func(ctx context.Context) error {
					if err := endpoints.DB.PingContext(ctx); err != nil {
						return fmt.Errorf("failed to ping postgres: %w", err)
					}

					return nil
				},
			},
			health.Config{
				Name:      "redis",
				Timeout:   2 * time.Second,
				SkipOnErr: false,
				Check: func(ctx context.Context) error {
					if err := endpoints.RedisClient.Ping(ctx).Err(); err != nil {
						return fmt.Errorf("failed to ping redis: %w", err)
					}

					return nil
				},
			},
			health.Config{
				Name:    "stripe",
				Timeout: 5 * time.Second,
				// The store can still take orders when the gateway blips.
				SkipOnErr: true,
				Check: func(ctx context.Context) error {
					params := &stripe.BalanceParams{
						Params: stripe.Params{Context: ctx},
					}

					if _, err := balance.Get(params); err != nil {
						return fmt.Errorf("failed to connect to stripe: %w", err)
					}

					return nil
				},
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}
