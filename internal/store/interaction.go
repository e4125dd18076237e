package store

import (
	"Vibeshare/internal/model"
	"slices"
	"sync"
)

// InteractionStore 帖子交互账本与关注状态
// 记录在首次变更时按基线懒创建，之后本地记录优先于服务端下发的基线
// 每条记录带一个变更代数与在途变更计数，供后台对账判断记录是否被动过
type InteractionStore struct {
	mu       sync.RWMutex
	items    map[int64]model.Interaction
	gens     map[int64]uint64
	pending  map[int64]int
	follows  map[int64]bool
	notifier *Notifier
}

func NewInteractionStore(n *Notifier) *InteractionStore {
	return &InteractionStore{
		items:    make(map[int64]model.Interaction),
		gens:     make(map[int64]uint64),
		pending:  make(map[int64]int),
		follows:  make(map[int64]bool),
		notifier: n,
	}
}

// Get 返回账本记录，没有记录时返回基线（不写入）
func (s *InteractionStore) Get(postID int64, base model.InteractionBaseline) model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.items[postID]; ok {
		return rec
	}
	return model.NewInteraction(postID, base)
}

func (s *InteractionStore) Lookup(postID int64) (model.Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[postID]
	return rec, ok
}

// Set 覆盖整条记录
func (s *InteractionStore) Set(rec model.Interaction) {
	s.mu.Lock()
	s.items[rec.PostID] = rec
	s.gens[rec.PostID]++
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventInteraction, PostID: rec.PostID})
}

// Update 原子地取出当前记录（或基线）并应用 fn，返回修改前后的记录
// 每次 Update 开启一个在途变更，必须以 Settle 结束
func (s *InteractionStore) Update(postID int64, base model.InteractionBaseline, fn func(*model.Interaction)) (prev, next model.Interaction) {
	s.mu.Lock()
	rec, ok := s.items[postID]
	if !ok {
		rec = model.NewInteraction(postID, base)
	}
	prev = rec
	fn(&rec)
	s.items[postID] = rec
	s.gens[postID]++
	s.pending[postID]++
	next = rec
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventInteraction, PostID: postID})
	return prev, next
}

// Settle 结束一个在途变更，fn 只改动该变更涉及的字段（回滚或对账），为 nil 时记录不变
func (s *InteractionStore) Settle(postID int64, fn func(*model.Interaction)) model.Interaction {
	s.mu.Lock()
	rec := s.items[postID]
	if fn != nil {
		fn(&rec)
		s.items[postID] = rec
		s.gens[postID]++
	}
	if s.pending[postID] <= 1 {
		delete(s.pending, postID)
	} else {
		s.pending[postID]--
	}
	s.mu.Unlock()

	if fn != nil {
		s.notifier.Publish(Event{Type: EventInteraction, PostID: postID})
	}
	return rec
}

// Generations 当前所有记录的变更代数快照
func (s *InteractionStore) Generations() map[int64]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]uint64, len(s.items))
	for id := range s.items {
		out[id] = s.gens[id]
	}
	return out
}

// ReconcileSaved 记录自 gen 以来未被改动且没有在途变更时，才把收藏状态改为 saved
func (s *InteractionStore) ReconcileSaved(postID int64, saved bool, gen uint64) bool {
	s.mu.Lock()
	rec, ok := s.items[postID]
	if !ok || s.gens[postID] != gen || s.pending[postID] > 0 || rec.IsSaved == saved {
		s.mu.Unlock()
		return false
	}
	rec.IsSaved = saved
	s.items[postID] = rec
	s.gens[postID]++
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventInteraction, PostID: postID})
	return true
}

// PostIDs 账本中所有帖子 ID
func (s *InteractionStore) PostIDs() []int64 {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// FollowState 本地关注状态，没有记录时返回 base
func (s *InteractionStore) FollowState(userID int64, base bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.follows[userID]; ok {
		return v
	}
	return base
}

func (s *InteractionStore) SetFollow(userID int64, following bool) {
	s.mu.Lock()
	s.follows[userID] = following
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventFollow, UserID: userID})
}

// ToggleFollow 翻转关注状态，返回翻转前后的值
func (s *InteractionStore) ToggleFollow(userID int64, base bool) (prev, next bool) {
	s.mu.Lock()
	cur, ok := s.follows[userID]
	if !ok {
		cur = base
	}
	prev, next = cur, !cur
	s.follows[userID] = next
	s.mu.Unlock()

	s.notifier.Publish(Event{Type: EventFollow, UserID: userID})
	return prev, next
}
