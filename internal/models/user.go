package models

import "time"

// User represents an API account. Password only ever holds a bcrypt hash.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(100);not null" bson:"username"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null" bson:"password"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
