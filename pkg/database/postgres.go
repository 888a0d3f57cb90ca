package database

import (
	"fmt"
	"log"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config returns the gorm settings shared by every connection the service opens.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	log.Println("[Database] Connected and migrated")
	return db
}

// Migrate creates the schema. On Postgres it also installs the inventory CHECK
// constraints, so no write path can oversell a tier or overspend a balance.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.PointsPurchase{},
		&models.Event{},
		&models.TicketTier{},
		&models.Reservation{},
		&models.PurchaseOrder{},
		&models.OrderLineItem{},
		&models.Ticket{},
		&models.Enrollment{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	constraints := []struct{ table, name, check string }{
		{"ticket_tiers", "chk_tier_inventory", "sold >= 0 AND held >= 0 AND sold + held <= capacity"},
		{"users", "chk_user_points", "points >= 0"},
		{"events", "chk_event_enrolled", "enrolled_count >= 0 AND enrolled_count <= max_attendees"},
	}
	for _, c := range constraints {
		if db.Migrator().HasConstraint(c.table, c.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", c.table, c.name, c.check)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
