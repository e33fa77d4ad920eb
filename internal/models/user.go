package models

import "time"

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	FullName     string    `bson:"full_name" json:"full_name"`
	ProfilePic   string    `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`
	BlockedUsers []string  `bson:"blocked_users,omitempty" json:"blocked_users,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
