package remote

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/evsync/core/model"
)

// MockClient is an in-memory Client used in tests. Every call is recorded;
// the optional hooks script the response. A nil hook answers with CodeOK.
type MockClient struct {
	OnFullSet   func(ctx context.Context, items []WireItem) (*Result, error)
	OnDelta     func(ctx context.Context, items []DeltaItem) (*Result, error)
	OnStatus    func(ctx context.Context, items []WireStatus, ttl time.Duration) (*Result, error)
	OnCDRs      func(ctx context.Context, records []model.ChargeDetailRecord) (*CDRResult, error)
	OnAuthorize func(ctx context.Context, token string) (*AuthResponse, error)

	mu          sync.Mutex
	fullSets    [][]WireItem
	deltas      [][]DeltaItem
	statuses    [][]WireStatus
	statusTTLs  []time.Duration
	cdrBatches  [][]model.ChargeDetailRecord
	authorizeTs []string
}

// NewMockClient creates a MockClient answering OK to everything.
func NewMockClient() *MockClient { return &MockClient{} }

func okResult() *Result { return &Result{Code: CodeOK, HTTPStatus: 200, Description: "ok"} }

func (m *MockClient) PushFullSet(ctx context.Context, items []WireItem) (*Result, error) {
	m.mu.Lock()
	m.fullSets = append(m.fullSets, append([]WireItem(nil), items...))
	m.mu.Unlock()
	if m.OnFullSet != nil {
		return m.OnFullSet(ctx, items)
	}
	return okResult(), nil
}

func (m *MockClient) PushDelta(ctx context.Context, items []DeltaItem) (*Result, error) {
	m.mu.Lock()
	m.deltas = append(m.deltas, append([]DeltaItem(nil), items...))
	m.mu.Unlock()
	if m.OnDelta != nil {
		return m.OnDelta(ctx, items)
	}
	return okResult(), nil
}

func (m *MockClient) PushStatus(ctx context.Context, items []WireStatus, ttl time.Duration) (*Result, error) {
	m.mu.Lock()
	m.statuses = append(m.statuses, append([]WireStatus(nil), items...))
	m.statusTTLs = append(m.statusTTLs, ttl)
	m.mu.Unlock()
	if m.OnStatus != nil {
		return m.OnStatus(ctx, items, ttl)
	}
	return okResult(), nil
}

func (m *MockClient) PushCDRs(ctx context.Context, records []model.ChargeDetailRecord) (*CDRResult, error) {
	m.mu.Lock()
	m.cdrBatches = append(m.cdrBatches, append([]model.ChargeDetailRecord(nil), records...))
	m.mu.Unlock()
	if m.OnCDRs != nil {
		return m.OnCDRs(ctx, records)
	}
	return &CDRResult{Code: CodeOK, HTTPStatus: 200}, nil
}

func (m *MockClient) Authorize(ctx context.Context, token string) (*AuthResponse, error) {
	m.mu.Lock()
	m.authorizeTs = append(m.authorizeTs, token)
	m.mu.Unlock()
	if m.OnAuthorize != nil {
		return m.OnAuthorize(ctx, token)
	}
	return &AuthResponse{Status: AuthAuthorized}, nil
}

// FullSets returns the recorded PushFullSet payloads.
func (m *MockClient) FullSets() [][]WireItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]WireItem(nil), m.fullSets...)
}

// Deltas returns the recorded PushDelta payloads.
func (m *MockClient) Deltas() [][]DeltaItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]DeltaItem(nil), m.deltas...)
}

// Statuses returns the recorded PushStatus payloads.
func (m *MockClient) Statuses() [][]WireStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]WireStatus(nil), m.statuses...)
}

// StatusTTLs returns the ttl passed to each PushStatus call.
func (m *MockClient) StatusTTLs() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.statusTTLs...)
}

// CDRBatches returns the recorded PushCDRs payloads.
func (m *MockClient) CDRBatches() [][]model.ChargeDetailRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]model.ChargeDetailRecord(nil), m.cdrBatches...)
}

// Tokens returns the tokens passed to Authorize.
func (m *MockClient) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.authorizeTs...)
}
