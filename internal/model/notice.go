package model

import "time"

// Notice 公告板条目，只有创建和删除两个生命周期操作
type Notice struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsImportant bool      `json:"isImportant,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
