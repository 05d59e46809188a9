package services

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stripe_order_bridge/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.OrderStatus{},
		&models.PaymentOption{},
		&models.Order{},
		&models.Setting{},
		&models.EventLogEntry{},
		&models.WebhookEventRecord{},
	)
	if err != nil {
		return err
	}

	// Expression index backing the exact payment-intent lookup; without it
	// every payment_intent webhook would walk the orders table.
	err = db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_orders_payment_intent_id ON orders ((custom_data ->> 'paymentIntentId'))`,
	).Error
	if err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}
