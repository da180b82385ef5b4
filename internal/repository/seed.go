package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Seed 首次启动时初始化演示数据：三名种子会员、BLACKHORSE 邀请码
// 和欢迎公告。members 集合非空时什么都不做。
func Seed(ctx context.Context, engine storage.Engine) error {
	existing, err := engine.List(ctx, storage.CollectionMembers)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	log.Println("No database found. Initializing with seed data...")
	now := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte("123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seedUsers := []*model.User{
		{
			ID: uuid.New().String(), UID: "88001",
			Username: "Anna", DisplayName: "Anna",
			Password: string(hash), Age: 23,
			ContactType: model.ContactWechat, ContactValue: "anna_love",
			Bio:   "喜欢摄影和旅游，寻找志同道合的朋友。",
			Likes: 128,
		},
		{
			ID: uuid.New().String(), UID: "88002",
			Username: "David", DisplayName: "David Fitness",
			Password: string(hash), Age: 27,
			ContactType: model.ContactPhone, ContactValue: "13800000000",
			Bio:   "健身教练，每天都在努力变更好。",
			Likes: 45,
		},
		{
			ID: uuid.New().String(), UID: "88003",
			Username: "Elena", DisplayName: "Elena Art",
			Password: string(hash), Age: 21,
			ContactType: model.ContactWechat, ContactValue: "elena_x",
			Bio:   "艺术系学生，平时喜欢画画。",
			Likes: 256,
		},
	}

	for _, u := range seedUsers {
		u.RegisteredAt = now
		u.LastActiveAt = now
		u.Friends = []string{}
		u.FriendRequests = []string{}
		u.Photos = []string{}

		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		idxData, _ := json.Marshal(loginIndex{UserID: u.ID})
		err = engine.Transact(ctx, []storage.Op{
			{Kind: storage.OpPut, Collection: storage.CollectionLogins, Key: loginKey(u.Username), Data: idxData, ExpectedVersion: storage.VersionNone},
			{Kind: storage.OpPut, Collection: storage.CollectionMembers, Key: u.ID, Data: data, ExpectedVersion: storage.VersionNone},
		})
		if err != nil {
			return err
		}
	}

	invite := &model.InvitationCode{
		ID:        uuid.New().String(),
		Code:      util.SeedInviteCode,
		CreatedAt: now,
	}
	inviteData, err := json.Marshal(invite)
	if err != nil {
		return err
	}
	if err := engine.Put(ctx, storage.CollectionInvitations, invite.ID, inviteData); err != nil {
		return err
	}

	notice := &model.Notice{
		ID:          uuid.New().String(),
		Title:       "欢迎来到黑马相亲",
		Content:     "这是一个高端、私密的交友平台。请遵守社区规范，文明交友。如有违规行为，账号将被永久封禁。",
		IsImportant: true,
		CreatedAt:   now,
	}
	noticeData, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return engine.Put(ctx, storage.CollectionNotices, notice.ID, noticeData)
}
