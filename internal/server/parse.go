package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
)

type parseResponse struct {
	Success   bool                `json:"success"`
	Data      *entity.ParsedEvent `json:"data,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
	Stage     string              `json:"stage,omitempty"`
	Logs      []string            `json:"logs"`
	ImageURL  string              `json:"image_url,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// ParseResponse shapes a pipeline outcome for transport. Failures keep the
// logs, warnings and poster URL gathered before the failing stage.
func ParseResponse(res entity.ParseResult, err error) (int, parseResponse) {
	out := parseResponse{
		Logs:     res.Logs,
		ImageURL: res.ImageURL,
		Warnings: res.Warnings,
	}
	if out.Logs == nil {
		out.Logs = []string{}
	}
	if err != nil {
		out.Error = common.UserMessage(err)
		out.ErrorKind = string(common.KindOf(err))
		var se *pipeline.StageError
		if errors.As(err, &se) {
			out.Stage = string(se.Stage)
		}
		return statusOf(err), out
	}
	ev := res.Event
	out.Success = true
	out.Data = &ev
	return http.StatusOK, out
}

func (s *HTTPServer) handleParse(w http.ResponseWriter, r *http.Request) {
	var req entity.ParseRequest
	if err := decodeJSON(r, maxParseBody, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Parser.Parse(r.Context(), req)
	if err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Warn("parse.failed", "type", req.Type, "kind", common.KindOf(err), "error", err)
	}
	status, body := ParseResponse(res, err)
	writeJSON(w, status, body)
}

func (s *HTTPServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		writeError(w, r, errUnavailable)
		return
	}
	var req entity.ParseRequest
	if err := decodeJSON(r, maxParseBody, &req); err != nil {
		writeError(w, r, err)
		return
	}
	job, err := s.Jobs.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, envelope{Success: true, Data: job})
}

func (s *HTTPServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		writeError(w, r, errUnavailable)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := s.Jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: job})
}
