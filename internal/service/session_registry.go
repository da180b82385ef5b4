package service

import "sync"

// SessionRegistry 进程内会话登记。封禁要求立刻强制下线，
// 所以令牌之外还需要一份服务端可撤销的登记。
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string              // sessionID -> userID
	byUser   map[string]map[string]struct{} // userID -> sessionIDs
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]string),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (r *SessionRegistry) Add(sessionID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = userID
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][sessionID] = struct{}{}
}

func (r *SessionRegistry) Get(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.sessions[sessionID]
	return userID, ok
}

func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID, ok := r.sessions[sessionID]; ok {
		delete(r.sessions, sessionID)
		if set := r.byUser[userID]; set != nil {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(r.byUser, userID)
			}
		}
	}
}

// Clear 吊销全部会话（整库导入后使用）
func (r *SessionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]string)
	r.byUser = make(map[string]map[string]struct{})
}

// RemoveUser 吊销该会员的全部会话（封禁时的强制下线）
func (r *SessionRegistry) RemoveUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID := range r.byUser[userID] {
		delete(r.sessions, sessionID)
	}
	delete(r.byUser, userID)
}
