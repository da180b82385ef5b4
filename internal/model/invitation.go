package model

import "time"

// InvitationCode 邀请码。IsUsed 一旦为 true 不会通过正常兑换回到 false，
// 只有管理员删除才能移除这条记录。
type InvitationCode struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	IsUsed    bool      `json:"isUsed"`
	UsedBy    string    `json:"usedBy,omitempty"` // 兑换者的登录账号
	CreatedAt time.Time `json:"createdAt"`
}
