package model

import "time"

type ContactType string

const (
	ContactWechat ContactType = "wechat"
	ContactPhone  ContactType = "phone"
)

// User 会员档案 + 社交状态。JSON 字段名即备份导出格式，不可改动。
type User struct {
	ID          string      `json:"id"`          // 内部主键（UUID，不变）
	UID         string      `json:"uid"`         // 展示用会员号，88001 起递增，永不复用
	Username    string      `json:"username"`    // 登录账号，创建后不可变
	DisplayName string      `json:"displayName"` // 公开昵称，可改
	Password    string      `json:"password"`    // bcrypt 哈希
	Age         int         `json:"age"`
	ContactType ContactType `json:"contactType"`
	ContactValue string     `json:"contactValue"`
	Bio         string      `json:"bio"`
	Photos      []string    `json:"photos"` // 顺序即展示顺序

	Likes          int      `json:"likes"`
	Friends        []string `json:"friends"`        // 好友的内部 ID，双向对称
	FriendRequests []string `json:"friendRequests"` // 待处理的申请人 ID，与 Friends 互斥

	RegisteredAt time.Time  `json:"registeredAt"`
	LastActiveAt time.Time  `json:"lastActiveAt"`
	IsDeleted    bool       `json:"isDeleted,omitempty"`
	IsBanned     bool       `json:"isBanned,omitempty"`
	BanExpiresAt *time.Time `json:"banExpiresAt,omitempty"`
}

// BanActive 封禁是否仍然生效。过期的封禁视同未封禁（由访问路径惰性清除）。
func (u *User) BanActive(now time.Time) bool {
	return u.IsBanned && u.BanExpiresAt != nil && u.BanExpiresAt.After(now)
}

// IsOnline 心跳派生的在线状态，每次读取都要重新计算
func (u *User) IsOnline(now time.Time) bool {
	return now.Sub(u.LastActiveAt) < OnlineWindow
}

func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

func (u *User) HasFriendRequest(id string) bool {
	for _, r := range u.FriendRequests {
		if r == id {
			return true
		}
	}
	return false
}

// OnlineWindow 距最后心跳多久以内算在线（参考客户端每 10 秒心跳一次）
const OnlineWindow = 35 * time.Second

// PublicUser 是对外展示的会员视图，不含凭据
type PublicUser struct {
	ID             string      `json:"id"`
	UID            string      `json:"uid"`
	Username       string      `json:"username"`
	DisplayName    string      `json:"displayName"`
	Age            int         `json:"age"`
	ContactType    ContactType `json:"contactType"`
	ContactValue   string      `json:"contactValue"`
	Bio            string      `json:"bio"`
	Photos         []string    `json:"photos"`
	Likes          int         `json:"likes"`
	Friends        []string    `json:"friends"`
	FriendRequests []string    `json:"friendRequests"`
	RegisteredAt   time.Time   `json:"registeredAt"`
	LastActiveAt   time.Time   `json:"lastActiveAt"`
	IsBanned       bool        `json:"isBanned,omitempty"`
	BanExpiresAt   *time.Time  `json:"banExpiresAt,omitempty"`
	Online         bool        `json:"online"`
}

func (u *User) Public(now time.Time) *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		UID:            u.UID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Age:            u.Age,
		ContactType:    u.ContactType,
		ContactValue:   u.ContactValue,
		Bio:            u.Bio,
		Photos:         u.Photos,
		Likes:          u.Likes,
		Friends:        u.Friends,
		FriendRequests: u.FriendRequests,
		RegisteredAt:   u.RegisteredAt,
		LastActiveAt:   u.LastActiveAt,
		IsBanned:       u.BanActive(now),
		BanExpiresAt:   u.BanExpiresAt,
		Online:         u.IsOnline(now),
	}
}

// AdminUser 是后台会员视图：比 PublicUser 多封禁原始标记，
// 同样绝不携带密码哈希。哈希只出现在备份导出里。
type AdminUser struct {
	*PublicUser
	IsBannedRaw bool `json:"isBannedRaw,omitempty"` // 未经惰性过期换算的原始标记
}

func (u *User) AdminView(now time.Time) *AdminUser {
	return &AdminUser{
		PublicUser:  u.Public(now),
		IsBannedRaw: u.IsBanned,
	}
}
