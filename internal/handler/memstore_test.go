package handler

import (
	"context"
	"sort"
	"sync"

	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/repository"
)

// memUserRepo はシナリオテスト用のインメモリUserRepository。
type memUserRepo struct {
	mu       sync.Mutex
	users    []*model.User
	sessions map[string][]model.Session // userID -> 追記順
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{sessions: make(map[string][]model.Session)}
}

func (r *memUserRepo) FindByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ClerkID == clerkID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ClerkID == user.ClerkID || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	r.users = append(r.users, &cp)
	return nil
}

func (r *memUserRepo) UpdatePoints(ctx context.Context, clerkID string, points float64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ClerkID == clerkID {
			u.Points = points
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) AppendSession(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.UserID] = append(r.sessions[session.UserID], *session)
	return nil
}

func (r *memUserRepo) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Session(nil), r.sessions[userID]...), nil
}

func (r *memUserRepo) ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]model.Session)
	for _, id := range clerkIDs {
		for _, u := range r.users {
			if u.ClerkID == id && len(r.sessions[u.ID]) > 0 {
				out[id] = append([]model.Session(nil), r.sessions[u.ID]...)
			}
		}
	}
	return out, nil
}

// memGroupRepo はシナリオテスト用のインメモリGroupRepository。
type memGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*model.Group
	chats  map[string][]model.ChatMessage
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{
		groups: make(map[string]*model.Group),
		chats:  make(map[string][]model.ChatMessage),
	}
}

func (r *memGroupRepo) Create(ctx context.Context, group *model.Group, admin model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.InviteCode == group.InviteCode {
			return repository.ErrInviteCodeConflict
		}
	}
	group.Members = []model.Member{admin}
	cp := cloneGroup(group)
	r.groups[group.ID] = cp
	return nil
}

func (r *memGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[id]; ok {
		return cloneGroup(g), nil
	}
	return nil, nil
}

func (r *memGroupRepo) FindByInviteCode(ctx context.Context, code string) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.InviteCode == code {
			return cloneGroup(g), nil
		}
	}
	return nil, nil
}

func (r *memGroupRepo) ListByMember(ctx context.Context, clerkID string) ([]*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Group
	for _, g := range r.groups {
		if g.HasMember(clerkID) {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memGroupRepo) AddMember(ctx context.Context, groupID string, member model.Member) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok || g.HasMember(member.ClerkID) {
		return false, nil
	}
	g.Members = append(g.Members, member)
	g.UpdatedAt = member.JoinedAt
	return true, nil
}

func (r *memGroupRepo) AppendChat(ctx context.Context, msg *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[msg.GroupID] = append(r.chats[msg.GroupID], *msg)
	if g, ok := r.groups[msg.GroupID]; ok {
		g.UpdatedAt = msg.CreatedAt
	}
	return nil
}

func (r *memGroupRepo) ListRecentChats(ctx context.Context, groupID string, limit int) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chats := r.chats[groupID]
	if len(chats) > limit {
		chats = chats[len(chats)-limit:]
	}
	return append([]model.ChatMessage(nil), chats...), nil
}

func cloneGroup(g *model.Group) *model.Group {
	cp := *g
	cp.Members = append([]model.Member(nil), g.Members...)
	return &cp
}

// compile-time interface check
var (
	_ repository.UserRepository  = (*memUserRepo)(nil)
	_ repository.GroupRepository = (*memGroupRepo)(nil)
)
