package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/snapshot"
)

// AssetLister returns the asset registry.
type AssetLister interface {
	List(ctx context.Context) ([]domain.Asset, error)
}

// PortfolioReader computes live holdings and portfolios from the ledger.
type PortfolioReader interface {
	Aggregate(ctx context.Context, assets []domain.Asset, holder string) (domain.PortfolioSnapshot, error)
	Holdings(ctx context.Context, assets []domain.Asset, holder string) ([]domain.Holding, []domain.SkippedAsset, error)
}

// SnapshotService stores and serves per-holder snapshots.
type SnapshotService interface {
	Generate(ctx context.Context, holder string, date time.Time) (domain.PortfolioSnapshot, error)
	GetLatest(ctx context.Context, holder string) (*snapshot.Snapshot, error)
	GetByDate(ctx context.Context, holder string, date time.Time) (*snapshot.Snapshot, error)
	List(ctx context.Context, holder string, limit int) ([]snapshot.Snapshot, error)
}

// Handler provides HTTP endpoints for holder portfolios.
type Handler struct {
	assets    AssetLister
	portfolio PortfolioReader
	snapshots SnapshotService
}

// NewHandler creates a new API handler.
func NewHandler(assets AssetLister, portfolio PortfolioReader, snapshots SnapshotService) *Handler {
	return &Handler{assets: assets, portfolio: portfolio, snapshots: snapshots}
}

type holdingsResponse struct {
	Holder   string                `json:"holder"`
	Holdings []domain.Holding      `json:"holdings"`
	Skipped  []domain.SkippedAsset `json:"skipped,omitempty"`
}

// GetPortfolio handles GET /api/v1/holders/{address}/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	holder := r.PathValue("address")
	assets, ok := h.listAssets(w, r)
	if !ok {
		return
	}

	snap, err := h.portfolio.Aggregate(r.Context(), assets, holder)
	if err != nil {
		h.ledgerError(w, "failed to aggregate portfolio", holder, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetHoldings handles GET /api/v1/holders/{address}/holdings.
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	holder := r.PathValue("address")
	assets, ok := h.listAssets(w, r)
	if !ok {
		return
	}

	holdings, skipped, err := h.portfolio.Holdings(r.Context(), assets, holder)
	if err != nil {
		h.ledgerError(w, "failed to load holdings", holder, err)
		return
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	writeJSON(w, http.StatusOK, holdingsResponse{Holder: holder, Holdings: holdings, Skipped: skipped})
}

// GetLatestSnapshot handles GET /api/v1/holders/{address}/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	holder := r.PathValue("address")
	s, err := h.snapshots.GetLatest(r.Context(), holder)
	if err != nil {
		h.snapshotError(w, "no snapshots found", holder, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSnapshotByDate handles GET /api/v1/holders/{address}/snapshots/{date}.
func (h *Handler) GetSnapshotByDate(w http.ResponseWriter, r *http.Request) {
	holder := r.PathValue("address")
	dateStr := r.PathValue("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.snapshots.GetByDate(r.Context(), holder, date)
	if err != nil {
		h.snapshotError(w, "snapshot not found for date", holder, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSnapshots handles GET /api/v1/holders/{address}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	holder := r.PathValue("address")
	snapshots, err := h.snapshots.List(r.Context(), holder, limit)
	if err != nil {
		h.snapshotError(w, "no snapshots found", holder, err)
		return
	}
	if snapshots == nil {
		snapshots = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GenerateSnapshot handles POST /api/v1/holders/{address}/snapshots/generate.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	holder := r.PathValue("address")
	snap, err := h.snapshots.Generate(r.Context(), holder, time.Now().UTC())
	if err != nil {
		h.ledgerError(w, "failed to generate snapshot", holder, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) ([]domain.Asset, bool) {
	assets, err := h.assets.List(r.Context())
	if err != nil {
		slog.Error("failed to list assets", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return assets, true
}

func (h *Handler) ledgerError(w http.ResponseWriter, msg, holder string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidHolder):
		writeError(w, http.StatusBadRequest, "invalid holder address")
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, "ledger not connected")
	default:
		slog.Error(msg, "holder", holder, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) snapshotError(w http.ResponseWriter, notFound, holder string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidHolder):
		writeError(w, http.StatusBadRequest, "invalid holder address")
	case errors.Is(err, snapshot.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		slog.Error("failed to read snapshots", "holder", holder, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
