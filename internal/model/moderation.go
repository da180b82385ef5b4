package model

import "time"

type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusResolved RequestStatus = "RESOLVED" // 终态，单向
)

type PasswordRequestType string

const (
	PasswordReset    PasswordRequestType = "RESET"
	PasswordRetrieve PasswordRequestType = "RETRIEVE"
)

// PasswordRequest 改密/找回申请，由管理员审核
type PasswordRequest struct {
	ID          string              `json:"id"`
	Username    string              `json:"username"`
	RequestType PasswordRequestType `json:"requestType"`
	NewPassword string              `json:"newPassword,omitempty"` // RESET 时用户期望设置的新密码
	ContactInfo string              `json:"contactInfo"`
	Status      RequestStatus       `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// BanAppeal 封禁申诉。与 PasswordRequest 形状相同但处理副作用不同，
// 保持独立队列。
type BanAppeal struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	UserID      string        `json:"userId"`
	ContactInfo string        `json:"contactInfo"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}
