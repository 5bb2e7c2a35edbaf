package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"order-tracker/internal/config"
	"order-tracker/internal/events"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:  "ordersctl",
		Usage: "operate the order tracker database and dependencies",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "deadline for each check"},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or update the orders and returns schema",
				Action: func(c *cli.Context) error {
					db, err := openDatabase()
					if err != nil {
						return err
					}
					if err := models.Migrate(db); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					logger.Info("✓ Schema up to date")
					return nil
				},
			},
			{
				Name:  "ping",
				Usage: "check database, redis and NATS connectivity",
				Action: func(c *cli.Context) error {
					return ping(c.Context, c.Duration("timeout"), logger)
				},
			},
			{
				Name:      "check-window",
				Usage:     "print the return eligibility of an order",
				ArgsUsage: "<order-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Required: true, EnvVars: []string{"TENANT_ID"}},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one order id is required", 2)
					}
					orderID, err := uuid.Parse(c.Args().First())
					if err != nil {
						return cli.Exit("order id must be a valid UUID", 2)
					}
					return checkWindow(c.Context, c.String("tenant"), orderID)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("ordersctl failed")
	}
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("load configuration: %v", err), 1)
	}
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("connect database: %v", err), 1)
	}
	return db, nil
}

func ping(ctx context.Context, timeout time.Duration, logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(fmt.Sprintf("load configuration: %v", err), 1)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	failed := false

	db, err := openDatabase()
	if err == nil {
		err = repository.NewOrderRepository(db, nil, cfg.App.CacheTTL).Ping(ctx)
	}
	if err != nil {
		logger.WithError(err).Error("✗ database")
		failed = true
	} else {
		logger.Info("✓ database")
	}

	if cfg.RedisURL == "" {
		logger.Info("- redis not configured")
	} else if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logger.WithError(err).Error("✗ redis")
		failed = true
	} else {
		client := redis.NewClient(opt)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Error("✗ redis")
			failed = true
		} else {
			logger.Info("✓ redis")
		}
	}

	if cfg.NATSURL == "" {
		logger.Info("- nats not configured")
	} else if publisher, err := events.NewPublisher(cfg.NATSURL, logger); err != nil {
		logger.WithError(err).Error("✗ nats")
		failed = true
	} else {
		publisher.Close()
		logger.Info("✓ nats")
	}

	if failed {
		return cli.Exit("one or more dependencies are unreachable", 1)
	}
	return nil
}

func checkWindow(ctx context.Context, tenantID string, orderID uuid.UUID) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	orders := repository.NewOrderRepository(db, nil, 0)
	returns := repository.NewReturnRepository(db)

	order, err := orders.GetByIDUncached(ctx, tenantID, orderID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load order: %v", err), 1)
	}
	exists, err := returns.ExistsForOrder(ctx, orderID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("look up returns: %v", err), 1)
	}

	result := models.CheckReturnEligibility(order, exists, time.Now().UTC())
	result.Order = nil
	out, err := json.MarshalIndent(struct {
		OrderNumber string `json:"orderNumber"`
		Status      string `json:"status"`
		models.EligibilityResult
	}{order.OrderNumber, string(order.Status), result}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
