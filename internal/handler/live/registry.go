package live

import (
	"sync"
)

// closer 是注册表管理的连接，替换或关闭时调用 Close。
type closer interface {
	Close() error
}

// Registry 保证每个会话同时只有一条实时连接，新连接会顶替旧连接。
type Registry struct {
	mu    sync.Mutex
	conns map[string]closer
}

// NewRegistry 创建连接注册表
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]closer)}
}

// Add 登记会话连接，已有连接会被关闭。
func (r *Registry) Add(sessionID string, c closer) {
	r.mu.Lock()
	old, exists := r.conns[sessionID]
	r.conns[sessionID] = c
	r.mu.Unlock()

	if exists && old != c {
		old.Close()
	}
}

// Remove 仅当登记的仍是 c 时移除，避免误删顶替后的新连接。
func (r *Registry) Remove(sessionID string, c closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[sessionID]; ok && current == c {
		delete(r.conns, sessionID)
	}
}

// Count 返回当前活跃连接数。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll 关闭全部连接，用于服务退出。
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]closer)
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
