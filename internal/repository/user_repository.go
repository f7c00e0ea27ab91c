package repository

import (
	"codequest_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByIDTx(tx *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	err := tx.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByNickname(nickname string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("nickname = ?", nickname).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// AddExpTx 总 EXP 原子累加
func (r *UserRepository) AddExpTx(tx *gorm.DB, userID uint, amount int64) error {
	return tx.Model(&model.User{}).
		Where("id = ?", userID).
		Update("exp", gorm.Expr("exp + ?", amount)).
		Error
}

// AddCoins 金币原子累加
func (r *UserRepository) AddCoins(userID uint, amount int) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("coins", gorm.Expr("coins + ?", amount)).
		Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).
		Error
}

func (r *UserRepository) UpdateProfileImage(userID uint, url string) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("profile_image", url).
		Error
}
