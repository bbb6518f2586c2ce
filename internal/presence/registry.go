package presence

import (
	"sort"
	"sync"
	"time"
)

// Entry — последняя известная мета пользователя.
// LastSeen == nil пока пользователь онлайн.
type Entry struct {
	UserID      string
	DisplayName string
	Role        string
	LastSeen    *time.Time
}

// Registry — единственное разделяемое состояние подсистемы:
// userID -> набор живых соединений + мета. Все мутации синхронные,
// под одним мьютексом, без await внутри (иначе register/unregister
// одного пользователя могут переплестись и присутствие "замигает").
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Conn // userID -> connID -> conn
	meta  map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[string]Conn),
		meta:  make(map[string]*Entry),
	}
}

// Register добавляет соединение и обновляет мету.
// Возвращает true только на переходе offline -> online.
func (r *Registry) Register(userID string, c Conn, displayName, role string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.conns[userID]
	if !ok {
		cs = make(map[string]Conn)
		r.conns[userID] = cs
	}
	first := len(cs) == 0
	cs[c.ID()] = c

	e, ok := r.meta[userID]
	if !ok {
		e = &Entry{UserID: userID}
		r.meta[userID] = e
	}
	if displayName != "" {
		e.DisplayName = displayName
	}
	if role != "" {
		e.Role = role
	}
	e.LastSeen = nil

	return first
}

// Unregister удаляет соединение. На переходе online -> offline
// фиксирует lastSeen (мета остаётся для отображения "был в сети").
func (r *Registry) Unregister(userID, connID string) (wentOffline bool, lastSeen time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.conns[userID]
	if !ok {
		return false, time.Time{}
	}
	delete(cs, connID)
	if len(cs) > 0 {
		return false, time.Time{}
	}
	delete(r.conns, userID)

	now := time.Now()
	if e, ok := r.meta[userID]; ok {
		e.LastSeen = &now
	}
	return true, now
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[userID]) > 0
}

// UpdateMeta обновляет имя/роль, не трогая online/offline.
func (r *Registry) UpdateMeta(userID, displayName, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.meta[userID]
	if !ok {
		e = &Entry{UserID: userID}
		r.meta[userID] = e
	}
	if displayName != "" {
		e.DisplayName = displayName
	}
	if role != "" {
		e.Role = role
	}
}

// Snapshot возвращает всех известных пользователей, отсортировано по userID.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.meta))
	for _, e := range r.meta {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })

	return out
}

// ToUser доставляет событие каждому соединению пользователя (best-effort).
func (r *Registry) ToUser(userID string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns[userID] {
		_ = c.Send(ev)
	}
}

// ToOthers — как ToUser, но минуя exceptConnID (multi-device echo).
func (r *Registry) ToOthers(userID, exceptConnID string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.conns[userID] {
		if id == exceptConnID {
			continue
		}
		_ = c.Send(ev)
	}
}

// ToAll доставляет событие всем живым соединениям процесса.
func (r *Registry) ToAll(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cs := range r.conns {
		for _, c := range cs {
			_ = c.Send(ev)
		}
	}
}
