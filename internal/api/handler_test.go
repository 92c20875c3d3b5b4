package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/snapshot"
)

const holder = "0x00000000000000000000000000000000000000b1"

type mockAssets struct {
	assets []domain.Asset
	err    error
}

func (m *mockAssets) List(_ context.Context) ([]domain.Asset, error) {
	return m.assets, m.err
}

type mockPortfolio struct {
	snap      domain.PortfolioSnapshot
	holdings  []domain.Holding
	err       error
	gotHolder string
	gotAssets int
}

func (m *mockPortfolio) Aggregate(_ context.Context, assets []domain.Asset, h string) (domain.PortfolioSnapshot, error) {
	m.gotHolder = h
	m.gotAssets = len(assets)
	return m.snap, m.err
}

func (m *mockPortfolio) Holdings(_ context.Context, assets []domain.Asset, h string) ([]domain.Holding, []domain.SkippedAsset, error) {
	m.gotHolder = h
	m.gotAssets = len(assets)
	return m.holdings, nil, m.err
}

type mockSnapshots struct {
	snapshots     []snapshot.Snapshot
	err           error
	lastListLimit int
	generated     int
}

func (m *mockSnapshots) Generate(_ context.Context, h string, _ time.Time) (domain.PortfolioSnapshot, error) {
	m.generated++
	if m.err != nil {
		return domain.PortfolioSnapshot{}, m.err
	}
	return domain.PortfolioSnapshot{Holder: h}, nil
}

func (m *mockSnapshots) GetLatest(_ context.Context, _ string) (*snapshot.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.snapshots) == 0 {
		return nil, snapshot.ErrNotFound
	}
	return &m.snapshots[0], nil
}

func (m *mockSnapshots) GetByDate(_ context.Context, _ string, date time.Time) (*snapshot.Snapshot, error) {
	for _, s := range m.snapshots {
		if s.SnapshotDate.Equal(date) {
			return &s, nil
		}
	}
	return nil, snapshot.ErrNotFound
}

func (m *mockSnapshots) List(_ context.Context, _ string, limit int) ([]snapshot.Snapshot, error) {
	m.lastListLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshots[:min(limit, len(m.snapshots))], nil
}

func newTestServer(p *mockPortfolio, s *mockSnapshots, apiKey string) http.Handler {
	h := NewHandler(&mockAssets{assets: []domain.Asset{{ID: "a"}, {ID: "b"}}}, p, s)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return NewServer("0", h, metrics, apiKey).Handler
}

func do(t *testing.T, srv http.Handler, method, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestGetPortfolioSuccess(t *testing.T) {
	p := &mockPortfolio{snap: domain.PortfolioSnapshot{Holder: holder, TotalInvested: decimal.NewFromInt(500)}}
	srv := newTestServer(p, &mockSnapshots{}, "")

	w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/portfolio")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if p.gotHolder != holder || p.gotAssets != 2 {
		t.Errorf("aggregate called with holder=%q assets=%d", p.gotHolder, p.gotAssets)
	}
	var got domain.PortfolioSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !got.TotalInvested.Equal(decimal.NewFromInt(500)) {
		t.Errorf("totalInvested = %s, want 500", got.TotalInvested)
	}
}

func TestGetPortfolioErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid holder", domain.ErrInvalidHolder, http.StatusBadRequest},
		{"not connected", domain.ErrNotConnected, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockPortfolio{err: tt.err}, &mockSnapshots{}, "")
			w := do(t, srv, http.MethodGet, "/api/v1/holders/nope/portfolio")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetPortfolioAssetListFailure(t *testing.T) {
	h := NewHandler(&mockAssets{err: errors.New("db down")}, &mockPortfolio{}, &mockSnapshots{})
	srv := NewServer("0", h, nil, "").Handler

	w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/portfolio")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetHoldingsEmpty(t *testing.T) {
	srv := newTestServer(&mockPortfolio{}, &mockSnapshots{}, "")

	w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/holdings")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"holdings":[]`) {
		t.Errorf("body = %s, want empty holdings array", w.Body.String())
	}
}

func TestGetLatestSnapshot(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"holder": holder})
	s := &mockSnapshots{snapshots: []snapshot.Snapshot{
		{ID: 1, Holder: holder, SnapshotDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), Data: data},
	}}
	srv := newTestServer(&mockPortfolio{}, s, "")

	w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots/latest")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestGetLatestSnapshotNotFound(t *testing.T) {
	srv := newTestServer(&mockPortfolio{}, &mockSnapshots{}, "")

	w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots/latest")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSnapshotByDate(t *testing.T) {
	s := &mockSnapshots{snapshots: []snapshot.Snapshot{
		{ID: 1, SnapshotDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), Data: json.RawMessage(`{}`)},
	}}
	srv := newTestServer(&mockPortfolio{}, s, "")

	if w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots/2026-01-15"); w.Code != http.StatusOK {
		t.Errorf("existing date status = %d, want 200", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots/2026-01-16"); w.Code != http.StatusNotFound {
		t.Errorf("missing date status = %d, want 404", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots/15-01-2026"); w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}
}

func TestListSnapshotsLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 30},
		{"?limit=5", 5},
		{"?limit=1000", 365},
		{"?limit=-1", 30},
		{"?limit=abc", 30},
	}
	for _, tt := range tests {
		s := &mockSnapshots{}
		srv := newTestServer(&mockPortfolio{}, s, "")

		w := do(t, srv, http.MethodGet, "/api/v1/holders/"+holder+"/snapshots"+tt.query)
		if w.Code != http.StatusOK {
			t.Errorf("%q: status = %d, want 200", tt.query, w.Code)
		}
		if s.lastListLimit != tt.want {
			t.Errorf("%q: limit = %d, want %d", tt.query, s.lastListLimit, tt.want)
		}
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("%q: body = %s, want []", tt.query, w.Body.String())
		}
	}
}

func TestListSnapshotsInvalidHolder(t *testing.T) {
	s := &mockSnapshots{err: domain.ErrInvalidHolder}
	srv := newTestServer(&mockPortfolio{}, s, "")

	w := do(t, srv, http.MethodGet, "/api/v1/holders/xyz/snapshots")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGenerateSnapshotAuth(t *testing.T) {
	s := &mockSnapshots{}
	srv := newTestServer(&mockPortfolio{}, s, "secret-key")
	path := "/api/v1/holders/" + holder + "/snapshots/generate"

	if w := do(t, srv, http.MethodPost, path); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
	if s.generated != 0 {
		t.Fatalf("generated = %d without auth", s.generated)
	}

	w := do(t, srv, http.MethodPost, path, "Authorization", "Bearer secret-key")
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", w.Code)
	}
	if s.generated != 1 {
		t.Errorf("generated = %d, want 1", s.generated)
	}
}

func TestGenerateSnapshotNoKey(t *testing.T) {
	s := &mockSnapshots{}
	srv := newTestServer(&mockPortfolio{}, s, "")

	w := do(t, srv, http.MethodPost, "/api/v1/holders/"+holder+"/snapshots/generate")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(&mockPortfolio{}, &mockSnapshots{}, "")

	w := do(t, srv, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "# metrics") {
		t.Errorf("metrics status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockPortfolio{}, &mockSnapshots{}, "")

	w := do(t, srv, http.MethodDelete, "/api/v1/holders/"+holder+"/portfolio")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
