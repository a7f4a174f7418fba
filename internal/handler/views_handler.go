package handler

import (
	"context"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/query"
	"skytrack/internal/store"
)

func (h *Handler) Dashboard(ctx context.Context, _ *apiv1.Empty) (*apiv1.DashboardResponse, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	d := query.BuildDashboard(w.Snapshot(), h.now())
	return &d, nil
}

func (h *Handler) ClassDetail(ctx context.Context, req *apiv1.ClassDetailRequest) (*apiv1.ClassDetailResponse, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	d, err := query.BuildClassDetail(w.Snapshot(), req.ClassID, h.now())
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &d, nil
}

func (h *Handler) Search(ctx context.Context, req *apiv1.SearchRequest) (*apiv1.SearchResponse, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return &apiv1.SearchResponse{Results: query.Search(w.Snapshot(), req.Query)}, nil
}

func (h *Handler) NoteStats(ctx context.Context, req *apiv1.NoteStatsRequest) (*apiv1.NoteStatsResponse, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range w.Notes() {
		if n.ID == req.NoteID {
			st := query.StatsFor(n)
			return &st, nil
		}
	}
	return nil, h.fail(ctx, store.ErrNotFound)
}
