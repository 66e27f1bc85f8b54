// Package memory 提供进程内的仓库实现，用于测试和本地开发。
//
// 锁顺序：先锁用户/帖子状态，再锁注册表。WithinTx 在加锁前释放注册表读锁。
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"socialspark-backend/internal/model"
)

type userState struct {
	mu          sync.Mutex
	user        model.User
	following   map[string]time.Time
	followers   map[string]time.Time
	connections map[string]time.Time
	// 对端用户ID -> 该用户对的连接请求，双方共享同一对象
	requests map[string]*model.ConnectionRequest
}

type postState struct {
	mu       sync.Mutex
	post     model.Post
	likes    map[string]time.Time
	comments []*model.Comment
	shares   int
}

// Store 保存所有内存数据
type Store struct {
	mu        sync.RWMutex
	users     map[string]*userState
	usernames map[string]string // 小写用户名 -> 用户ID
	posts     map[string]*postState
}

// NewStore 创建一个空的内存存储
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*userState),
		usernames: make(map[string]string),
		posts:     make(map[string]*postState),
	}
}

func (s *Store) userState(id string) *userState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

func (s *Store) postState(id string) *postState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts[id]
}

func newUserState(user model.User) *userState {
	return &userState{
		user:        user,
		following:   make(map[string]time.Time),
		followers:   make(map[string]time.Time),
		connections: make(map[string]time.Time),
		requests:    make(map[string]*model.ConnectionRequest),
	}
}

// snapshot 在持有 st.mu 时调用
func (st *userState) snapshot() *model.User {
	u := st.user
	u.Following = idsByRecency(st.following)
	u.Followers = idsByRecency(st.followers)
	u.Connections = idsByRecency(st.connections)
	return &u
}

// idsByRecency 按时间倒序返回ID，时间相同按ID排序
func idsByRecency(set map[string]time.Time) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := set[ids[i]], set[ids[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ids[i] < ids[j]
	})
	return ids
}

func usernameKey(username string) string {
	return strings.ToLower(username)
}
