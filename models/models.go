package models

import (
	"time"
)

type User struct {
	ID     uint    `gorm:"primarykey"`
	Name   string  `gorm:"size:30;not null"`
	APIKey string  `gorm:"column:api_key;size:64;not null;uniqueIndex"`
	Tweets []Tweet `gorm:"foreignKey:AuthorID"`
}

type Tweet struct {
	ID        uint      `gorm:"primarykey"`
	Content   string    `gorm:"column:tweet_data;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;<-:create"`
	AuthorID  uint      `gorm:"not null;index;<-:create"`
	Author    *User     `gorm:"foreignKey:AuthorID"`
	Likes     int       `gorm:"not null;default:0"`
	Medias    []Media   `gorm:"foreignKey:TweetID"`
}

// Media is a stored upload. TweetID stays nil until a tweet claims it.
type Media struct {
	ID       uint   `gorm:"primarykey"`
	FilePath string `gorm:"not null"`
	TweetID  *uint  `gorm:"index"`
	Tweet    *Tweet `gorm:"foreignKey:TweetID"`
}

func (Media) TableName() string {
	return "medias"
}

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	FollowerID uint  `gorm:"primaryKey;autoIncrement:false"`
	FollowedID uint  `gorm:"primaryKey;autoIncrement:false;index"`
	Follower   *User `gorm:"foreignKey:FollowerID"`
	Followed   *User `gorm:"foreignKey:FollowedID"`
}

func (Follow) TableName() string {
	return "user_followers"
}

// UserSummary is the (id, name) pair used in follower lists and tweet authors.
type UserSummary struct {
	ID   uint
	Name string
}
