package constants

import "strings"

// InputType is the declared kind of content handed to the ingestion pipeline.
type InputType string

const (
	InputText  InputType = "text"
	InputURL   InputType = "url"
	InputImage InputType = "image"
)

func ParseInputType(s string) (InputType, bool) {
	switch InputType(strings.ToLower(strings.TrimSpace(s))) {
	case InputText:
		return InputText, true
	case InputURL:
		return InputURL, true
	case InputImage:
		return InputImage, true
	}
	return InputType(s), false
}

// ImagePlaceholder stands in for a poster payload wherever raw content is
// stored or returned.
const ImagePlaceholder = "📷 图片海报（已通过 OCR 提取信息）"
