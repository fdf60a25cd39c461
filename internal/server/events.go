package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/export"
	"github.com/joseph-ayodele/campus-feed/internal/extract"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

const (
	maxEventBody     = 1 << 20
	maxTitleLength   = 200
	maxSummaryLength = 2000
)

func parseStatus(s string) (constants.EventStatus, bool) { return constants.ParseEventStatus(s) }

func parseType(s string) (constants.EventType, bool) {
	t := constants.EventType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

func invalid(format string, args ...any) error {
	return common.NewAppError("INVALID_INPUT", fmt.Sprintf(format, args...), common.ErrInvalidInput)
}

func eventID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, invalid("event id must be a positive integer")
	}
	return id, nil
}

// eventFilter reads status, type, limit and offset from the query string.
func eventFilter(r *http.Request) (entity.EventFilter, error) {
	q := r.URL.Query()
	var f entity.EventFilter
	if v := q.Get("status"); v != "" && v != "all" {
		st, ok := parseStatus(v)
		if !ok {
			return f, invalid("unknown status %q", v)
		}
		f.Status = &st
	}
	if v := q.Get("type"); v != "" && v != "all" {
		t, ok := parseType(v)
		if !ok {
			return f, invalid("unknown type %q", v)
		}
		f.Type = &t
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, invalid("%s must be a non-negative integer", name)
			}
			*dst = n
		}
	}
	return f, nil
}

func (s *HTTPServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := eventFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := s.Events.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []entity.Event{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: events})
}

func lowered(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func derefOr(p *string) any {
	if p == nil {
		return nil
	}
	return lowered(*p)
}

func validateEventInput(in entity.EventInput) error {
	v := common.NewValidator().
		Field("title", in.Title, common.Required, common.MaxLength(maxTitleLength)).
		Field("type", lowered(string(in.Type)), common.OneOf(constants.EventTypesAsStrings()...)).
		Field("summary", in.Summary, common.MaxLength(maxSummaryLength)).
		Field("image_url", in.ImageURL, common.HTTPURL)
	return v.Error()
}

// validateEventPatch checks only the fields present in p. A present title
// must not be blank.
func validateEventPatch(p entity.EventPatch) error {
	v := common.NewValidator()
	if p.Title != nil {
		v.Field("title", p.Title, common.Required, common.MaxLength(maxTitleLength))
	}
	v.Field("type", derefOr(p.Type), common.OneOf(constants.EventTypesAsStrings()...)).
		Field("status", derefOr(p.Status), common.OneOf(constants.StoredStatuses...)).
		Field("summary", p.Summary, common.MaxLength(maxSummaryLength))
	return v.Error()
}

type createEventRequest struct {
	entity.EventInput
	Action string `json:"action"`
}

func (s *HTTPServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, maxEventBody, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateEventInput(req.EventInput); err != nil {
		writeError(w, r, err)
		return
	}
	action, err := repository.ParseSaveAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.Events.Create(r.Context(), req.EventInput, action, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: ev})
}

func (s *HTTPServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: ev})
}

func (s *HTTPServer) handlePatchEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p entity.EventPatch
	if err := decodeJSON(r, maxEventBody, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateEventPatch(p); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.Events.Patch(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: ev})
}

func (s *HTTPServer) handleSetTop(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		IsTop *bool `json:"is_top"`
	}
	if err := decodeJSON(r, maxEventBody, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.IsTop == nil {
		writeError(w, r, invalid("is_top is required"))
		return
	}
	ev, err := s.Events.SetTop(r.Context(), id, *body.IsTop)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: ev})
}

func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, maxEventBody, &body); err != nil {
		writeError(w, r, err)
		return
	}
	st, ok := constants.ParseEventStatus(body.Status)
	if !ok {
		writeError(w, r, invalid("unknown status %q", body.Status))
		return
	}
	ev, err := s.Events.SetStatus(r.Context(), id, st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: ev})
}

func (s *HTTPServer) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Events.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.Export == nil {
		writeError(w, r, errUnavailable)
		return
	}
	f, err := eventFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.Export.ExportEventsXLSX(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.Stats.Dashboard(r.Context())})
}

// handleUpload stores a poster sent as multipart "file" or as a "base64"
// form field holding a data URI.
func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.Uploader == nil {
		writeError(w, r, errUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxParseBody)
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil && err != http.ErrNotMultipart {
		writeError(w, r, invalid("invalid upload: %v", err))
		return
	}

	var (
		data        []byte
		contentType string
		filename    string
	)
	if file, hdr, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			writeError(w, r, invalid("read upload: %v", err))
			return
		}
		filename = hdr.Filename
		contentType = hdr.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
	} else if b64 := r.FormValue("base64"); b64 != "" {
		var err error
		data, contentType, _, err = extract.DecodeImagePayload(b64)
		if err != nil {
			writeError(w, r, invalid("invalid base64 image: %v", err))
			return
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
	} else {
		writeError(w, r, invalid("no file provided"))
		return
	}

	url, err := s.Uploader.Upload(r.Context(), data, contentType, filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}
