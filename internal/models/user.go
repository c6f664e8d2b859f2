package models

import "time"

type User struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	Username  string    `gorm:"column:username;size:50;uniqueIndex:uq_users_username;not null" json:"username"`
	Email     string    `gorm:"column:email;size:255;uniqueIndex:uq_users_email;not null" json:"email"`
	Password  string    `gorm:"column:password;not null" json:"-"` // hash uniquement
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
