package database

import (
	"codequest_backend/internal/config"
	"codequest_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ShouldAutoMigrate release 模式默认跳过建表迁移，需 --migrate 显式开启
func ShouldAutoMigrate(mode string, force bool) bool {
	return force || mode != "release"
}

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.World{},
		&model.UserWorld{},
		&model.Stage{},
		&model.UserStageProgress{},
		&model.Lesson{},
		&model.Problem{},
		&model.TestCase{},
		&model.UserLessonProgress{},
		&model.UserProgress{},
		&model.DailyStudy{},
		&model.League{},
		&model.LeagueParticipant{},
		&model.UserRankingHistory{},
		&model.GlobalRanking{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
