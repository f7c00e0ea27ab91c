package service

import (
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
	"codequest_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
	Ranking  *RankingService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService, ranking *RankingService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
		Ranking:  ranking,
	}
}

type ProfileView struct {
	ID           uint       `json:"id"`
	Nickname     string     `json:"nickname"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	ProfileImage string     `json:"profileImage"`
	Language     string     `json:"language"`
	Hearts       int        `json:"hearts"`
	Coins        int        `json:"coins"`
	TotalExp     int64      `json:"totalExp"`
	Tier         model.Tier `json:"tier"`
	TierInfo     TierView   `json:"tierInfo"`
}

func (s *UserService) GetProfile(userID uint) (*ProfileView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	return s.profileView(user), nil
}

func (s *UserService) profileView(user *model.User) *ProfileView {
	tier := s.Ranking.TierFor(user.Exp)
	return &ProfileView{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Email:        user.Email,
		Role:         string(user.Role),
		ProfileImage: user.ProfileImage,
		Language:     user.Language,
		Hearts:       user.Hearts,
		Coins:        user.Coins,
		TotalExp:     user.Exp,
		Tier:         tier.Tier,
		TierInfo:     tierView(tier),
	}
}

type UpdateProfileInput struct {
	Nickname *string `json:"nickname"`
	Language *string `json:"language"`
}

func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*ProfileView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	if input.Nickname != nil && *input.Nickname != user.Nickname {
		if existing, err := s.UserRepo.FindByNickname(*input.Nickname); err == nil && existing.ID != userID {
			return nil, errors.New("该昵称已被使用")
		}
		user.Nickname = *input.Nickname
	}
	if input.Language != nil {
		user.Language = *input.Language
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return s.profileView(user), nil
}

func (s *UserService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return util.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errors.New("原密码不正确")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return s.UserRepo.Update(user)
}

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadAvatar 上传头像并更新用户资料
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAvatarExts[ext] {
		return "", errors.New("不支持的图片格式")
	}

	objectName := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.New().String(), ext)
	url, err := s.Storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return "", err
	}

	if err := s.UserRepo.UpdateProfileImage(userID, url); err != nil {
		return "", err
	}
	return url, nil
}
