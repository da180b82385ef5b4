package util

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidCredentials = errors.New("账号或密码错误")
	ErrUsernameTaken      = errors.New("用户名已存在")
	ErrInviteInvalid      = errors.New("邀请码无效或已被使用")
	ErrAlreadyFriends     = errors.New("已经是好友了")
	ErrAlreadyRequested   = errors.New("已发送过申请")
	ErrDuplicatePending   = errors.New("已有一个待处理的申请")
	ErrEmptyMessage       = errors.New("消息内容不能为空")
	// ErrStorageBusy 乐观重试耗尽或事务反复中止后对外的失败信号
	ErrStorageBusy = errors.New("storage unavailable")
)

// BanError 账号封禁错误，携带结构化字段，调用方不需要解析错误文本
type BanError struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"banExpiresAt"`
}

func (e *BanError) Error() string {
	return fmt.Sprintf("账号已被封禁，解封时间 %s", e.ExpiresAt.Format("2006-01-02 15:04:05"))
}
