package database

import (
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *logrus.Logger) *gorm.DB {
	var err error

	gormLogLevel := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gormLogLevel = logger.Info
	}

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.KPIEntry{},
		&models.Target{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Info("database ready")
	return DB
}
