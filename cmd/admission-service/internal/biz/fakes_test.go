package biz

import (
	"context"
	"strconv"
	"sync"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/cache"
)

// memStore 进程内存储，实现与共享存储相同的原子与过期语义
// now 可注入，测试里拨动时钟即可模拟键过期
type memStore struct {
	mu       sync.Mutex
	values   map[string]int64
	strings  map[string]string
	expiries map[string]time.Time
	listLen  int64
	now      func() time.Time
	err      error
}

func newMemStore() *memStore {
	return &memStore{
		values:   make(map[string]int64),
		strings:  make(map[string]string),
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// purgeExpired 剔除已过期的键，调用方需持锁
func (s *memStore) purgeExpired(key string) {
	exp, ok := s.expiries[key]
	if !ok || exp.After(s.now()) {
		return
	}
	delete(s.strings, key)
	delete(s.values, key)
	delete(s.expiries, key)
}

// setExpiry 记录过期时间，调用方需持锁
func (s *memStore) setExpiry(key string, ttl time.Duration) {
	if ttl > 0 {
		s.expiries[key] = s.now().Add(ttl)
	}
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.purgeExpired(key)
	if v, ok := s.strings[key]; ok {
		return v, nil
	}
	if v, ok := s.values[key]; ok {
		return strconv.FormatInt(v, 10), nil
	}
	return "", cache.ErrNotFound
}

func (s *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.strings[key] = toString(value)
	s.setExpiry(key, ttl)
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strings, key)
	delete(s.values, key)
	delete(s.expiries, key)
	return nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.purgeExpired(key)
	_, okS := s.strings[key]
	_, okV := s.values[key]
	return okS || okV, nil
}

func (s *memStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.purgeExpired(key)
	if _, ok := s.strings[key]; ok {
		return false, nil
	}
	s.strings[key] = toString(value)
	s.setExpiry(key, ttl)
	return true, nil
}

func (s *memStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.values[key] += amount
	return s.values[key], nil
}

func (s *memStore) DecrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return s.IncrBy(ctx, key, -amount)
}

func (s *memStore) IncrWithCeiling(ctx context.Context, key string, amount, limit int64, ttl time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, 0, s.err
	}
	s.purgeExpired(key)
	current := s.values[key]
	if current+amount > limit {
		return false, current, nil
	}
	if _, ok := s.expiries[key]; !ok {
		s.setExpiry(key, ttl)
	}
	s.values[key] = current + amount
	return true, s.values[key], nil
}

func (s *memStore) ListLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.listLen, nil
}

func (s *memStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setExpiry(key, ttl)
	return nil
}

func (s *memStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, nil
}

func (s *memStore) Close() error {
	return nil
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// memTenantRepo 进程内租户仓储
type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	err     error
}

func newMemTenantRepo(tenants ...*domain.Tenant) *memTenantRepo {
	r := &memTenantRepo{tenants: make(map[string]*domain.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *memTenantRepo) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

// memAuditRepo 进程内审计仓储
type memAuditRepo struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
	err     error
}

func (r *memAuditRepo) failWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *memAuditRepo) Append(ctx context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memAuditRepo) all() []*domain.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *memAuditRepo) Trail(ctx context.Context, entityID string, limit int) ([]*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].EntityID == entityID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *memAuditRepo) Recent(ctx context.Context, limit int, action string) ([]*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if action == "" || r.records[i].Action == action {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// memLeadRepo 进程内线索仓储
type memLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead
}

func newMemLeadRepo(leads ...*domain.Lead) *memLeadRepo {
	r := &memLeadRepo{leads: make(map[string]*domain.Lead)}
	for _, l := range leads {
		r.leads[l.ID] = l
	}
	return r
}

func (r *memLeadRepo) CreateLead(ctx context.Context, lead *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *memLeadRepo) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leads[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLeadNotFound
}

func (r *memLeadRepo) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return domain.ErrLeadNotFound
	}
	l.Status = status
	return nil
}

// capturePublisher 记录发布的事件
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.LeadEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event *domain.LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) all() []*domain.LeadEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.LeadEvent, len(p.events))
	copy(out, p.events)
	return out
}

// memGauge 固定深度的队列信号
type memGauge struct {
	depth int64
	err   error
}

func (g *memGauge) Depth(ctx context.Context) (int64, error) {
	if g.err != nil {
		return 0, g.err
	}
	return g.depth, nil
}
