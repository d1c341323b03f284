package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/pkg/llm"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users     map[string]*model.User // key: user_id
	seq       int
	createErr error // 非 nil 时 Create 返回该错误，模拟唯一索引冲突等
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

// ── Mock ClassRepository ──
// 以切片保存，顺序即创建顺序

type mockClassRepo struct {
	classes []model.Class
	seq     int
	clock   time.Time
	err     error // 非 nil 时所有方法返回该错误
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{clock: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
}

func (m *mockClassRepo) nextID() string {
	m.seq++
	return uuid.NewString()
}

func (m *mockClassRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockClassRepo) ListByUser(_ context.Context, userID string) ([]model.Class, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Class
	for _, c := range m.classes {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.classes {
		if m.classes[i].ClassID == id {
			c := m.classes[i]
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) FindBySubject(_ context.Context, userID, subject string) (*model.Class, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.classes {
		c := m.classes[i]
		if c.UserID == userID && strings.EqualFold(c.Subject, subject) {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if m.err != nil {
		return m.err
	}
	if class.ClassID == "" {
		class.ClassID = m.nextID()
	}
	class.CreatedAt = m.tick()
	class.UpdatedAt = class.CreatedAt
	m.classes = append(m.classes, *class)
	return nil
}

func (m *mockClassRepo) CreateBatch(ctx context.Context, classes []model.Class) error {
	for i := range classes {
		if err := m.Create(ctx, &classes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.classes {
		if m.classes[i].ClassID == class.ClassID && m.classes[i].UserID == class.UserID {
			class.UpdatedAt = m.tick()
			m.classes[i] = *class
		}
	}
	return nil
}

func (m *mockClassRepo) deleteWhere(match func(model.Class) bool) int64 {
	kept := m.classes[:0]
	var n int64
	for _, c := range m.classes {
		if match(c) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.classes = kept
	return n
}

func (m *mockClassRepo) DeleteByID(_ context.Context, id, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleteWhere(func(c model.Class) bool { return c.ClassID == id && c.UserID == userID }), nil
}

func (m *mockClassRepo) DeleteBySubject(_ context.Context, userID, subject string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleteWhere(func(c model.Class) bool {
		return c.UserID == userID && strings.EqualFold(c.Subject, subject)
	}), nil
}

func (m *mockClassRepo) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleteWhere(func(c model.Class) bool { return c.UserID == userID }), nil
}

// seed 直接写入课程（绕过校验，用于构造格式异常的数据）
func (m *mockClassRepo) seed(userID string, entries ...[3]string) {
	for _, e := range entries {
		m.Create(context.Background(), &model.Class{UserID: userID, Subject: e[0], Day: e[1], Time: e[2]})
	}
}

func newTestRepo() (*repository.Repository, *mockUserRepo, *mockClassRepo) {
	users := newMockUserRepo()
	classes := newMockClassRepo()
	return &repository.Repository{User: users, Class: classes}, users, classes
}

// ── Mock LLM ──

type mockLLM struct {
	reply    string
	err      error
	requests []llm.Request
}

func (m *mockLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) Close() error { return nil }

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	entries map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{entries: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.entries[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.entries[jti]
	return ok, nil
}
