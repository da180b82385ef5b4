package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"context"
	"errors"
	"time"
)

type FriendshipService struct {
	UserRepo *repository.UserRepository
}

func NewFriendshipService(userRepo *repository.UserRepository) *FriendshipService {
	return &FriendshipService{UserRepo: userRepo}
}

// Like 无条件 +1。不限自赞、不限重复（保持参考行为），但并发点赞
// 一个都不能丢——走乐观写，两个同时到达的赞必然都累计进去。
func (s *FriendshipService) Like(ctx context.Context, targetID string) error {
	_, err := s.UserRepo.Update(ctx, targetID, func(u *model.User) error {
		u.Likes++
		return nil
	})
	if errors.Is(err, util.ErrUserNotFound) {
		return nil
	}
	return err
}

func (s *FriendshipService) SendFriendRequest(ctx context.Context, fromID, toID string) error {
	if _, err := s.UserRepo.FindByID(ctx, fromID); err != nil {
		return err
	}
	_, err := s.UserRepo.Update(ctx, toID, func(target *model.User) error {
		if target.HasFriend(fromID) {
			return util.ErrAlreadyFriends
		}
		if target.HasFriendRequest(fromID) {
			return util.ErrAlreadyRequested
		}
		target.FriendRequests = append(target.FriendRequests, fromID)
		return nil
	})
	return err
}

// AcceptFriendRequest 两侧好友列表在一个事务里落库（对称性不变量）
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, ownerID, requesterID string) error {
	return s.UserRepo.AcceptFriend(ctx, ownerID, requesterID)
}

// RejectFriendRequest 只移除待处理申请，幂等
func (s *FriendshipService) RejectFriendRequest(ctx context.Context, ownerID, requesterID string) error {
	_, err := s.UserRepo.Update(ctx, ownerID, func(u *model.User) error {
		next := make([]string, 0, len(u.FriendRequests))
		for _, id := range u.FriendRequests {
			if id != requesterID {
				next = append(next, id)
			}
		}
		u.FriendRequests = next
		return nil
	})
	return err
}

// Friends 好友档案列表，ID 集合走缓存
func (s *FriendshipService) Friends(ctx context.Context, userID string) ([]*model.PublicUser, error) {
	ids, err := s.UserRepo.FriendIDsCached(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	friends := make([]*model.PublicUser, 0, len(ids))
	for _, id := range ids {
		u, err := s.UserRepo.FindByID(ctx, id)
		if errors.Is(err, util.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, u.Public(now))
	}
	return friends, nil
}

// PendingRequests 待处理申请人的档案
func (s *FriendshipService) PendingRequests(ctx context.Context, userID string) ([]*model.PublicUser, error) {
	u, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	requesters := make([]*model.PublicUser, 0, len(u.FriendRequests))
	for _, id := range u.FriendRequests {
		requester, err := s.UserRepo.FindByID(ctx, id)
		if errors.Is(err, util.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		requesters = append(requesters, requester.Public(now))
	}
	return requesters, nil
}
