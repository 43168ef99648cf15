package access_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"finsurvey/entity"
	"finsurvey/impl/access"
)

// memRepo mimics the conditional update of the document store
type memRepo struct {
	mu        sync.Mutex
	requests  map[string]*entity.AccessRequest
	tokens    []*entity.AccessToken
	createErr []error
}

func newMemRepo() *memRepo {
	return &memRepo{requests: map[string]*entity.AccessRequest{}}
}

func (r *memRepo) CreateAccessRequest(_ context.Context, request *entity.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErr) > 0 {
		err := r.createErr[0]
		r.createErr = r.createErr[1:]
		return err
	}
	if _, ok := r.requests[request.ApprovalToken]; ok {
		return access.ErrDuplicateToken
	}
	cp := *request
	r.requests[request.ApprovalToken] = &cp
	return nil
}

func (r *memRepo) GetAccessRequest(_ context.Context, token string) (*entity.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[token]
	if !ok {
		return nil, nil
	}
	cp := *request
	return &cp, nil
}

func (r *memRepo) DecideAccessRequest(_ context.Context, token string, status entity.AccessStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[token]
	if !ok || request.Status != entity.StatusPending {
		return false, nil
	}
	request.Status = status
	request.DecidedAt = &at
	request.UpdatedAt = at
	return true, nil
}

func (r *memRepo) PendingAccessRequests(_ context.Context, limit int64) ([]*entity.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]*entity.AccessRequest, 0)
	for _, request := range r.requests {
		if request.IsPending() {
			cp := *request
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if int64(len(pending)) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *memRepo) CreateAccessToken(_ context.Context, token *entity.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return nil
}

type sentRequest struct {
	to, approveUrl, denyUrl string
}

type mockMailer struct {
	mu          sync.Mutex
	requests    []sentRequest
	approved    map[string]string
	denied      []string
	requestErr  error
	approvedErr error
}

func newMockMailer() *mockMailer {
	return &mockMailer{approved: map[string]string{}}
}

func (m *mockMailer) SendAccessRequest(_ context.Context, to string, _ *entity.AccessRequest, approveUrl, denyUrl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requestErr != nil {
		return m.requestErr
	}
	m.requests = append(m.requests, sentRequest{to, approveUrl, denyUrl})
	return nil
}

func (m *mockMailer) SendAccessApproved(_ context.Context, to, code string, _ time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approvedErr != nil {
		return m.approvedErr
	}
	m.approved[to] = code
	return nil
}

func (m *mockMailer) SendAccessDenied(_ context.Context, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, to)
	return nil
}

type mockNotifier struct {
	notified []*entity.AccessRequest
}

func (n *mockNotifier) NotifyAccessRequest(request *entity.AccessRequest) {
	n.notified = append(n.notified, request)
}
