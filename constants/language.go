package constants

import "strings"

// Language selects the output language of a parsed event.
type Language string

const (
	LanguageZH   Language = "zh"
	LanguageEN   Language = "en"
	LanguageZHEN Language = "zh-en"
)

const DefaultLanguage = LanguageZH

// LanguageStrings is the per-language text the pipeline emits itself.
type LanguageStrings struct {
	// OutputInstruction is appended to the system prompt.
	OutputInstruction string
	// QRRegistrationLink fills key_info.link when a poster advertises a QR code.
	QRRegistrationLink string
}

var languageTable = map[Language]LanguageStrings{
	LanguageZH: {
		OutputInstruction:  "所有字段（title、summary、tags、key_info 中的文本）请使用简体中文输出。",
		QRRegistrationLink: "二维码报名",
	},
	LanguageEN: {
		OutputInstruction:  "Write every text field (title, summary, tags and key_info values) in English.",
		QRRegistrationLink: "QR Code Registration",
	},
	LanguageZHEN: {
		OutputInstruction:  "所有文本字段请使用中英双语输出，格式为「中文 | English」，tags 中每个标签同样使用「中文 | English」。",
		QRRegistrationLink: "二维码报名 | QR Code Registration",
	},
}

// ParseLanguage resolves a language code. An empty code yields DefaultLanguage;
// any other unknown code reports false.
func ParseLanguage(s string) (Language, bool) {
	code := Language(strings.ToLower(strings.TrimSpace(s)))
	if code == "" {
		return DefaultLanguage, true
	}
	if _, ok := languageTable[code]; ok {
		return code, true
	}
	return code, false
}

// Strings returns the string table entry for l.
func (l Language) Strings() (LanguageStrings, bool) {
	s, ok := languageTable[l]
	return s, ok
}
