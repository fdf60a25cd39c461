package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// schemaDescription is the reply shape the model must produce. It mirrors
// BuildEventJSONSchema.
const schemaDescription = `{
  "is_valid": true,
  "title": "活动或招聘的标题",
  "type": "recruit | activity | lecture",
  "key_info": {
    "date": "日期",
    "time": "时间",
    "location": "地点",
    "deadline": "截止时间",
    "company": "公司（招聘类）",
    "position": "岗位（招聘类）",
    "education": "学历要求（招聘类）",
    "link": "相关链接",
    "registration_link": "报名链接（活动/讲座类）",
    "referral": false
  },
  "summary": "一到两句话的摘要",
  "tags": ["标签1", "标签2"]
}`

// BuildSystemPrompt composes the extraction instructions for lang. Unknown
// languages fail with UnsupportedLanguage.
func BuildSystemPrompt(lang constants.Language) (string, error) {
	strs, ok := lang.Strings()
	if !ok {
		return "", common.NewPipelineError(common.KindUnsupportedLanguage,
			fmt.Sprintf("unsupported output language %q", lang), nil)
	}

	parts := []string{
		"你是一个校园信息助手，负责从群消息、网页文章或海报文字中提取结构化的活动信息。",
		"只返回一个 JSON 对象，格式如下：\n" + schemaDescription,
		"提取规则：",
		"1. type 只能是 recruit（招聘、实习、内推）、activity（活动、比赛、社团）、lecture（讲座、宣讲、分享会）之一。",
		"2. key_info 中只填写原文明确提到的字段；没有的字段直接省略，不要输出 null，不要编造。",
		"3. referral 仅在原文提到内推时为 true。",
		"4. tags 为 2 到 5 个简短标签，按重要性排序。",
		"5. summary 概括时间、地点和参与方式，不超过 100 字。",
		"6. 如果内容不是活动、讲座或招聘信息（例如闲聊、广告、无法识别的文字），is_valid 设为 false，其余字段可省略。",
		"7. is_valid 字段必须存在。",
		strs.OutputInstruction,
	}
	return strings.Join(parts, "\n"), nil
}

// BuildUserMessage wraps extracted text for the model according to where it came from.
// The QR hint names the registration link text of lang.
func BuildUserMessage(kind constants.InputType, text string, hasQRCode bool, lang constants.Language) string {
	switch kind {
	case constants.InputURL:
		return "网页内容：\n" + text
	case constants.InputImage:
		var b strings.Builder
		b.WriteString("海报图片中的文字内容：\n")
		b.WriteString(text)
		b.WriteString("\n\n请从以上文字中提取活动信息。")
		if hasQRCode {
			strs, ok := lang.Strings()
			if !ok {
				strs, _ = constants.DefaultLanguage.Strings()
			}
			b.WriteString("\n海报中包含二维码，报名方式可能为扫码报名；若文字中没有报名链接，link 填写「")
			b.WriteString(strs.QRRegistrationLink)
			b.WriteString("」。")
		}
		return b.String()
	default:
		return "群消息：\n" + text
	}
}
