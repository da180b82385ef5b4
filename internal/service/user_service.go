package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/monitoring"
	"blackhorse_backend/pkg/storage"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Auth     *AuthService
}

func NewUserService(userRepo *repository.UserRepository, auth *AuthService) *UserService {
	return &UserService{UserRepo: userRepo, Auth: auth}
}

// visible 大厅/排行榜的可见条件：未删除且封禁不在生效期
func visible(u *model.User, now time.Time) bool {
	return !u.IsDeleted && !u.BanActive(now)
}

// Lobby 除调用者以外的全部可见会员
func (s *UserService) Lobby(ctx context.Context, callerID string) ([]*model.PublicUser, error) {
	users, err := s.UserRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]*model.PublicUser, 0, len(users))
	online := 0
	for _, u := range users {
		if u.IsOnline(now) {
			online++
		}
		if u.ID == callerID || !visible(u, now) {
			continue
		}
		out = append(out, u.Public(now))
	}
	monitoring.OnlineMembers.Set(float64(online))
	return out, nil
}

// Leaderboard 点赞数降序，平局按注册时间升序（先来者靠前）
func (s *UserService) Leaderboard(ctx context.Context) ([]*model.PublicUser, error) {
	users, err := s.UserRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	ranked := make([]*model.User, 0, len(users))
	for _, u := range users {
		if visible(u, now) {
			ranked = append(ranked, u)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Likes != ranked[j].Likes {
			return ranked[i].Likes > ranked[j].Likes
		}
		return ranked[i].RegisteredAt.Before(ranked[j].RegisteredAt)
	})
	out := make([]*model.PublicUser, 0, len(ranked))
	for _, u := range ranked {
		out = append(out, u.Public(now))
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

type ProfileUpdate struct {
	DisplayName  *string
	Age          *int
	ContactType  *model.ContactType
	ContactValue *string
	Bio          *string
	Photos       *[]string
}

// UpdateProfile 单记录乐观写，只触碰提交过来的字段
func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error) {
	return s.UserRepo.Update(ctx, id, func(u *model.User) error {
		if update.DisplayName != nil {
			u.DisplayName = *update.DisplayName
		}
		if update.Age != nil {
			u.Age = *update.Age
		}
		if update.ContactType != nil {
			u.ContactType = *update.ContactType
		}
		if update.ContactValue != nil {
			u.ContactValue = *update.ContactValue
		}
		if update.Bio != nil {
			u.Bio = *update.Bio
		}
		if update.Photos != nil {
			u.Photos = *update.Photos
		}
		return nil
	})
}

type AdminCreateInput struct {
	Username     string
	Password     string
	Age          int
	ContactType  model.ContactType
	ContactValue string
}

// AdminCreate 管理员直接添加会员，不走邀请码
func (s *UserService) AdminCreate(ctx context.Context, input AdminCreateInput) (*model.User, error) {
	if _, err := s.UserRepo.FindByUsername(ctx, input.Username); err == nil {
		return nil, util.ErrUsernameTaken
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	password := input.Password
	if password == "" {
		password = util.DefaultResetPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
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
	err = s.UserRepo.Create(ctx, user)
	if errors.Is(err, storage.ErrAborted) {
		return nil, util.ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AdminList 管理端会员列表（仍然排除软删除的记录）。
// 返回不含密码哈希的后台视图，哈希只能经备份导出离开存储层。
func (s *UserService) AdminList(ctx context.Context) ([]*model.AdminUser, error) {
	users, err := s.UserRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UID < users[j].UID
	})
	now := time.Now()
	views := make([]*model.AdminUser, 0, len(users))
	for _, u := range users {
		views = append(views, u.AdminView(now))
	}
	return views, nil
}

func (s *UserService) AdminDelete(ctx context.Context, id string) error {
	s.Auth.Sessions.RemoveUser(id)
	return s.UserRepo.SoftDelete(ctx, id)
}

// ResetPassword 管理员按登录名重置密码，空密码用缺省值 888888
func (s *UserService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		newPassword = util.DefaultResetPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	_, err = s.UserRepo.Update(ctx, user.ID, func(u *model.User) error {
		u.Password = string(hashed)
		return nil
	})
	return err
}
