package service

import (
	"blackhorse_backend/internal/config"
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// registerAttempts 注册事务因并发中止时的重试次数（每次重读邀请码版本）
const registerAttempts = 3

type AuthService struct {
	UserRepo   *repository.UserRepository
	InviteRepo *repository.InvitationRepository
	Sessions   *SessionRegistry
	Cfg        *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, inviteRepo *repository.InvitationRepository, sessions *SessionRegistry, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:   userRepo,
		InviteRepo: inviteRepo,
		Sessions:   sessions,
		Cfg:        cfg,
	}
}

type RegisterInput struct {
	Username     string
	Password     string
	Age          int
	ContactType  model.ContactType
	ContactValue string
	InviteCode   string
}

// Register 邀请制注册。登录名索引、会员记录和邀请码核销在一个事务里
// 提交：两个并发注册抢同一个码时最多一个成功，输家拿到邀请码错误。
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if _, err := s.UserRepo.FindByUsername(ctx, input.Username); err == nil {
		return nil, util.ErrUsernameTaken
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < registerAttempts; attempt++ {
		invite, version, err := s.InviteRepo.FindByCode(ctx, input.InviteCode)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, util.ErrInviteInvalid
		}
		if err != nil {
			return nil, err
		}
		if invite.IsUsed {
			return nil, util.ErrInviteInvalid
		}

		uid, err := s.UserRepo.AllocateUID(ctx)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		user := &model.User{
			ID:             uuid.New().String(),
			UID:            uid,
			Username:       input.Username,
			DisplayName:    input.Username,
			Password:       string(hashed),
			Age:            input.Age,
			ContactType:    input.ContactType,
			ContactValue:   input.ContactValue,
			Bio:            util.DefaultBio,
			Photos:         []string{},
			Friends:        []string{},
			FriendRequests: []string{},
			RegisteredAt:   now,
			LastActiveAt:   now,
		}

		redeemOp, err := s.InviteRepo.RedeemOp(invite, version, user.Username)
		if err != nil {
			return nil, err
		}

		err = s.UserRepo.Create(ctx, user, redeemOp)
		if errors.Is(err, storage.ErrAborted) {
			// 登录名被抢注或邀请码被并发核销，重读后区分
			if _, findErr := s.UserRepo.FindByUsername(ctx, input.Username); findErr == nil {
				return nil, util.ErrUsernameTaken
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}
	return nil, util.ErrInviteInvalid
}

// Login 校验凭据并签发会话。封禁未到期返回结构化的 BanError；
// 到期的封禁在这里被惰性清除，随后正常登录。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByUsername(ctx, username)
	if errors.Is(err, util.ErrUserNotFound) {
		return "", nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	now := time.Now()
	if user.BanActive(now) {
		return "", nil, &util.BanError{Username: user.Username, ExpiresAt: *user.BanExpiresAt}
	}

	user, err = s.UserRepo.Update(ctx, user.ID, func(u *model.User) error {
		if u.IsBanned && !u.BanActive(time.Now()) {
			u.IsBanned = false
			u.BanExpiresAt = nil
		}
		u.LastActiveAt = time.Now()
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	// 更新期间被并发封禁则拒绝签发会话
	if user.BanActive(time.Now()) {
		return "", nil, &util.BanError{Username: user.Username, ExpiresAt: *user.BanExpiresAt}
	}

	sessionID := uuid.New().String()
	s.Sessions.Add(sessionID, user.ID)
	token, err := util.GenerateJWT(user.ID, sessionID, util.RoleMember, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		s.Sessions.Remove(sessionID)
		return "", nil, err
	}
	return token, user, nil
}

// AdminLogin 固定凭据的后台登录
func (s *AuthService) AdminLogin(id, secret string) (string, error) {
	if id != s.Cfg.Admin.ID || secret != s.Cfg.Admin.Secret {
		return "", util.ErrInvalidCredentials
	}
	sessionID := uuid.New().String()
	s.Sessions.Add(sessionID, "admin")
	token, err := util.GenerateJWT("admin", sessionID, util.RoleAdmin, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		s.Sessions.Remove(sessionID)
		return "", err
	}
	return token, nil
}

// ResolveSession 重新校验会话。封禁仍生效时吊销会话并返回结构化的
// BanError，让持旧令牌的第一个请求拿到封禁详情而不是裸 401（后台封禁
// 已经吊销过会话，这条路径兜底的是绕过封禁流程写入的标记）；封禁已
// 到期则在这里顺手清除。
func (s *AuthService) ResolveSession(ctx context.Context, claims *util.Claims) (*model.User, error) {
	userID, ok := s.Sessions.Get(claims.SessionID)
	if !ok || userID != claims.UserID {
		return nil, nil
	}

	user, err := s.UserRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, util.ErrUserNotFound) {
		s.Sessions.Remove(claims.SessionID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if user.BanActive(now) {
		s.Sessions.Remove(claims.SessionID)
		return nil, &util.BanError{Username: user.Username, ExpiresAt: *user.BanExpiresAt}
	}
	if user.IsBanned {
		user, err = s.UserRepo.Update(ctx, user.ID, func(u *model.User) error {
			if u.IsBanned && !u.BanActive(time.Now()) {
				u.IsBanned = false
				u.BanExpiresAt = nil
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ResolveAdminSession 管理员会话仍然有效时返回 true
func (s *AuthService) ResolveAdminSession(claims *util.Claims) bool {
	if claims.Role != util.RoleAdmin {
		return false
	}
	userID, ok := s.Sessions.Get(claims.SessionID)
	return ok && userID == claims.UserID
}

func (s *AuthService) Logout(sessionID string) {
	s.Sessions.Remove(sessionID)
}

// Heartbeat 幂等；会员已不存在时是无操作而非错误
func (s *AuthService) Heartbeat(ctx context.Context, userID string) error {
	return s.UserRepo.Heartbeat(ctx, userID)
}

// Ban 设置封禁并立刻吊销该会员的所有会话（强制下线，不等惰性检查）
func (s *AuthService) Ban(ctx context.Context, userID string, duration time.Duration) error {
	_, err := s.UserRepo.Update(ctx, userID, func(u *model.User) error {
		expires := time.Now().Add(duration)
		u.IsBanned = true
		u.BanExpiresAt = &expires
		return nil
	})
	if err != nil {
		return err
	}
	s.Sessions.RemoveUser(userID)
	return nil
}

// Unban 无条件清除封禁状态
func (s *AuthService) Unban(ctx context.Context, userID string) error {
	_, err := s.UserRepo.Update(ctx, userID, func(u *model.User) error {
		u.IsBanned = false
		u.BanExpiresAt = nil
		return nil
	})
	return err
}
