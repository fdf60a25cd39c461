package llm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

func TestNormalizeReply_RecruitPassesThrough(t *testing.T) {
	raw := `{"is_valid":true,"title":"实习招聘","type":"recruit","key_info":{"deadline":"6月1日"},"tags":[]}`
	got, err := NormalizeReply(raw, nil)
	if err != nil {
		t.Fatalf("NormalizeReply: %v", err)
	}
	want := entity.ParsedEvent{
		Title:   "实习招聘",
		Type:    constants.EventTypeRecruit,
		KeyInfo: entity.KeyInfo{Deadline: "6月1日"},
		Tags:    []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeReply_MissingTypeDefaultsToActivity(t *testing.T) {
	got, err := NormalizeReply(`{"is_valid":true,"title":"社团招新"}`, nil)
	if err != nil {
		t.Fatalf("NormalizeReply: %v", err)
	}
	if got.Type != constants.EventTypeActivity {
		t.Errorf("type = %q, want activity", got.Type)
	}
	if got.Tags == nil {
		t.Error("tags should default to an empty slice, not nil")
	}
}

func TestNormalizeReply_UnknownTypeDefaults(t *testing.T) {
	got, err := NormalizeReply(`{"is_valid":true,"title":"x","type":"party"}`, nil)
	if err != nil {
		t.Fatalf("NormalizeReply: %v", err)
	}
	if got.Type != constants.DefaultEventType {
		t.Errorf("type = %q, want %q", got.Type, constants.DefaultEventType)
	}
}

func TestNormalizeReply_Rejected(t *testing.T) {
	for name, raw := range map[string]string{
		"false":  `{"is_valid":false,"title":"闲聊"}`,
		"absent": `{"title":"闲聊"}`,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeReply(raw, nil)
			if common.KindOf(err) != common.KindContentRejected {
				t.Fatalf("kind = %q, want ContentRejected (err=%v)", common.KindOf(err), err)
			}
			if got.Title != "" {
				t.Errorf("a rejected reply must not yield a partial event, got %+v", got)
			}
		})
	}
}

func TestNormalizeReply_Malformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json": `sorry, I cannot help`,
		"array":    `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeReply(raw, nil)
			if !errors.Is(err, &common.PipelineError{Kind: common.KindMalformedModelOutput}) {
				t.Fatalf("err = %v, want MalformedModelOutput", err)
			}
		})
	}
}

func TestNormalizeReply_LenientCoercion(t *testing.T) {
	// WHAT: string booleans, stray keys and comma-joined tags are repaired.
	// WHY: providers drift from JSON mode in small ways that should not fail a parse.
	raw := "```json\n" + `{
		"is_valid": "true",
		"title": "AI 讲座",
		"category": "讲座",
		"key_info": {"location": "图书馆", "referral": "否", "mood": "happy", "date": null},
		"tags": "AI，讲座",
		"confidence": 0.9
	}` + "\n```"
	got, err := NormalizeReply(raw, nil)
	if err != nil {
		t.Fatalf("NormalizeReply: %v", err)
	}
	no := false
	want := entity.ParsedEvent{
		Title:   "AI 讲座",
		Type:    constants.EventTypeLecture,
		KeyInfo: entity.KeyInfo{Location: "图书馆", Referral: &no},
		Tags:    []string{"AI", "讲座"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeAndSanitizeJSON_DropsUnknown(t *testing.T) {
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"is_valid":true,"extra":1,"title":""}`), nil)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if string(out) != `{"is_valid":true}` {
		t.Errorf("out = %s", out)
	}
	if len(dropped) != 2 {
		t.Errorf("dropped = %v, want 2 entries", dropped)
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildEventJSONSchema()
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"is_valid":true,"type":"lecture"}`)); err != nil {
		t.Errorf("valid doc rejected: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"is_valid":true,"type":"party"}`)); err == nil {
		t.Error("enum violation accepted")
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"title":"x"}`)); err == nil {
		t.Error("missing is_valid accepted")
	}
}
