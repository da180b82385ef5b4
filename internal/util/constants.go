package util

const (
	// UIDFloor 会员号下限：首个会员分配 88001
	UIDFloor = 88000

	// DefaultResetPassword 管理员重置密码时的缺省新密码
	DefaultResetPassword = "888888"

	// DefaultBio 新注册会员的缺省签名
	DefaultBio = "这个人很懒，什么都没写。"

	// SeedInviteCode 初始数据库自带的邀请码
	SeedInviteCode = "BLACKHORSE"
)

// 角色常量，写入令牌的 role 声明
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)
