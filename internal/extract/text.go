package extract

import "context"

// TextExtractor passes message text through unchanged. Blank input is
// rejected by the pipeline before it gets here.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (TextExtractor) Extract(_ context.Context, content string) (Result, error) {
	return Result{Text: content, Method: "text"}, nil
}
