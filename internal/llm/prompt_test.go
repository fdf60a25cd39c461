package llm

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
)

func TestBuildSystemPrompt_PerLanguage(t *testing.T) {
	for _, lang := range []constants.Language{constants.LanguageZH, constants.LanguageEN, constants.LanguageZHEN} {
		p, err := BuildSystemPrompt(lang)
		if err != nil {
			t.Fatalf("%s: %v", lang, err)
		}
		if !strings.Contains(p, "is_valid") {
			t.Errorf("%s: prompt does not require is_valid", lang)
		}
		strs, _ := lang.Strings()
		if !strings.Contains(p, strs.OutputInstruction) {
			t.Errorf("%s: prompt lacks its output instruction", lang)
		}
	}
}

func TestBuildSystemPrompt_UnknownLanguageFailsClosed(t *testing.T) {
	_, err := BuildSystemPrompt(constants.Language("fr"))
	if common.KindOf(err) != common.KindUnsupportedLanguage {
		t.Fatalf("kind = %q, want UnsupportedLanguage", common.KindOf(err))
	}
}

func TestBuildUserMessage(t *testing.T) {
	if got := BuildUserMessage(constants.InputText, "招聘", false, constants.LanguageZH); got != "群消息：\n招聘" {
		t.Errorf("text message = %q", got)
	}
	if got := BuildUserMessage(constants.InputURL, "正文", false, constants.LanguageZH); got != "网页内容：\n正文" {
		t.Errorf("url message = %q", got)
	}
	img := BuildUserMessage(constants.InputImage, "海报", true, constants.LanguageEN)
	if !strings.HasPrefix(img, "海报图片中的文字内容：\n海报\n\n请从以上文字中提取活动信息。") {
		t.Errorf("image message = %q", img)
	}
	if !strings.Contains(img, "二维码") {
		t.Error("image message with QR signal should mention the QR code")
	}
	if !strings.Contains(img, "「QR Code Registration」") {
		t.Errorf("image message should name the English link text: %q", img)
	}
	zh := BuildUserMessage(constants.InputImage, "海报", true, constants.LanguageZH)
	if !strings.Contains(zh, "「二维码报名」") {
		t.Errorf("image message should name the Chinese link text: %q", zh)
	}
	if plain := BuildUserMessage(constants.InputImage, "海报", false, constants.LanguageEN); strings.Contains(plain, "QR Code Registration") {
		t.Errorf("no QR signal, no link hint: %q", plain)
	}
}
