package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	alerts "railguard-cloud/internal/alerts/domain"
	"railguard-cloud/internal/alerts/infrastructure/postgres"
)

// AlertStore is the persistence surface the handler needs.
type AlertStore interface {
	List(ctx context.Context, filter postgres.ListFilter) ([]alerts.Record, error)
	GetByID(ctx context.Context, id string) (*alerts.Record, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetConstruction(ctx context.Context, id string, isConstruction bool) error
}

// Handler provides alert HTTP endpoints.
type Handler struct {
	store AlertStore
}

// NewHandler constructs a handler.
func NewHandler(store AlertStore) (*Handler, error) {
	if store == nil {
		return nil, errors.New("alerts handler: nil store")
	}
	return &Handler{store: store}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alerts":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/alerts/export.xlsx":
		h.handleExport(w, r, "xlsx")
	case r.URL.Path == "/api/v1/alerts/export.pdf":
		h.handleExport(w, r, "pdf")
	case strings.HasPrefix(r.URL.Path, "/api/v1/alerts/"):
		h.handleAction(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var (
		payload     []byte
		contentType string
		filename    string
	)
	switch format {
	case "xlsx":
		payload, err = BuildAlertsXLSX(list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "alerts.xlsx"
	case "pdf":
		payload, err = BuildAlertsPDF(list)
		contentType = "application/pdf"
		filename = "alerts.pdf"
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	var err error
	switch parts[1] {
	case "status":
		var body struct {
			Status string `json:"status"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		err = h.store.UpdateStatus(r.Context(), id, body.Status)
	case "construction":
		var body struct {
			IsConstruction bool `json:"is_construction"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		err = h.store.SetConstruction(r.Context(), id, body.IsConstruction)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if errors.Is(err, alerts.ErrInvalidStatus) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}

func parseListFilter(r *http.Request) (postgres.ListFilter, error) {
	filter := postgres.ListFilter{
		NodeID: r.URL.Query().Get("node_id"),
		Status: r.URL.Query().Get("status"),
	}
	if filter.Status != "" && !alerts.ValidStatus(filter.Status) {
		return postgres.ListFilter{}, errors.New("unknown status " + filter.Status)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return postgres.ListFilter{}, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
