package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Nickname     string    `gorm:"size:50;unique;not null" json:"nickname"`
	Email        string    `gorm:"size:100;unique;not null" json:"email"`
	Password     string    `gorm:"size:100;not null" json:"-"`
	Role         UserRole  `gorm:"type:enum('student','admin');default:'student'" json:"role"`
	Exp          int64     `gorm:"default:0" json:"exp"`    // 总经验值（全期累计）
	Hearts       int       `gorm:"default:5" json:"hearts"` // 生命值
	Coins        int       `gorm:"default:0" json:"coins"`  // 金币（奖励货币）
	Language     string    `gorm:"size:10;default:'ko'" json:"language"`
	ProfileImage string    `gorm:"size:255" json:"profileImage"`
	Disabled     bool      `gorm:"default:false" json:"disabled"`
	LastLogin    time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen     time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
