package http

import (
	"errors"
	"net/http"

	applog "fanrevenue/internal/log"
	"fanrevenue/internal/services"
)

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	creator, err := parseCreator(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	buckets, err := s.svc.ListByCreator(r.Context(), creator)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(creator, buckets))
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	b, err := s.svc.Get(r.Context(), key.CreatorID, key.Year, key.Month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUploadBucket(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}
	displayName, raws, err := parseUpload(r)
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	b, err := s.svc.Upload(r.Context(), key.CreatorID, displayName, key.Year, key.Month, raws)
	if errors.Is(err, services.ErrNotPersisted) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Upload kept in memory only",
			applog.FieldCreatorID, key.CreatorID,
			applog.FieldPeriod, key.Period(),
			applog.FieldError, err)
		writeJSON(w, http.StatusBadGateway, uploadFailure{Error: err.Error(), Bucket: b})
		return
	}
	if err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}
	s.structured.LogBucketUpserted(r.Context(), b.CreatorID, b.Year, b.Month, len(b.Records), b.Analysis.TotalRevenue)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	existed, err := s.svc.Delete(r.Context(), key.CreatorID, key.Year, key.Month)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if !existed {
		writeError(w, r, applog.OpDelete, services.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	a, err := s.svc.Customers(r.Context(), key)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	cal, err := s.svc.Calendar(r.Context(), key.CreatorID, key.Year, key.Month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), key.CreatorID, key.Year, key.Month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
