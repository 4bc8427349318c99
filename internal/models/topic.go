package models

import "time"

type Topic struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	ParentID  *string   `gorm:"type:varchar(64);index" json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TopicRef is the short form of a topic embedded in other views.
type TopicRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TopicNode is a topic with its nested sub topics.
type TopicNode struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	ParentID  *string      `json:"parent_id"`
	CreatedAt time.Time    `json:"created_at"`
	SubTopics []*TopicNode `json:"sub_topic"`
}
