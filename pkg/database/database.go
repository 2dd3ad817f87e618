package database

import (
	"course_cache_engine/internal/config"
	"course_cache_engine/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

// Migrate 创建或更新课程结构、提交和阈值表
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.CourseInstance{},
		&model.Module{},
		&model.ModuleRequirement{},
		&model.Category{},
		&model.LearningObject{},
		&model.Submission{},
		&model.SubmissionMember{},
		&model.Threshold{},
		&model.ThresholdRequirement{},
		&model.ThresholdPoints{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}
