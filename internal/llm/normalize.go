package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

type eventReply struct {
	IsValid bool           `json:"is_valid"`
	Title   string         `json:"title"`
	Type    string         `json:"type"`
	KeyInfo entity.KeyInfo `json:"key_info"`
	Summary string         `json:"summary"`
	Tags    []string       `json:"tags"`
}

// NormalizeReply turns a raw model reply into a ParsedEvent. RawContent is
// left empty for the caller to fill.
func NormalizeReply(raw string, logger *slog.Logger) (entity.ParsedEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body := []byte(trimCodeFence(raw))

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindMalformedModelOutput,
			"model reply is not valid JSON", err)
	}
	if _, ok := probe.(map[string]any); !ok {
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindMalformedModelOutput,
			"model reply is not a JSON object", nil)
	}

	cleaned, dropped, err := NormalizeAndSanitizeJSON(body, logger)
	if err != nil {
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindMalformedModelOutput,
			"model reply could not be sanitized", err)
	}

	var reply eventReply
	if err := json.Unmarshal(cleaned, &reply); err != nil {
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindMalformedModelOutput,
			"model reply has unexpected shape", err)
	}
	if !reply.IsValid {
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindContentRejected,
			"内容被判定为无效信息", nil)
	}

	if err := validateEvent(cleaned); err != nil {
		logger.Error("llm.normalize.schema_validation_failed", "error", err, "dropped", dropped)
		return entity.ParsedEvent{}, common.NewPipelineError(common.KindMalformedModelOutput,
			"model reply does not match the event schema", err)
	}

	ev := entity.ParsedEvent{
		Title:   reply.Title,
		Type:    constants.DefaultEventType,
		KeyInfo: reply.KeyInfo,
		Summary: reply.Summary,
		Tags:    reply.Tags,
	}
	if t, ok := constants.CanonicalizeEventType(reply.Type); ok {
		ev.Type = t
	}
	if ev.Tags == nil {
		ev.Tags = []string{}
	}
	return ev, nil
}

// trimCodeFence strips a surrounding ```json fence some providers add even in JSON mode.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
