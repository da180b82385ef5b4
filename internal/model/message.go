package model

import "time"

// ChatMessage 私信，创建后不可变。Seq 由分配器发放，
// 时间戳相同的消息按 Seq 保持插入顺序。
type ChatMessage struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}
