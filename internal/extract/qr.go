package extract

import "strings"

// DefaultQRKeywords signal that a poster advertises QR-code registration.
var DefaultQRKeywords = []string{
	"扫码", "二维码", "QR", "qr code", "scan", "Scan", "扫一扫", "扫描",
	"Registration", "registration", "报名二维码", "扫码报名", "扫码注册",
}

// DetectQRCode reports whether text mentions a QR code using the default keywords.
func DetectQRCode(text string) bool {
	return QRDetector{}.Detect(text)
}

// QRDetector is a case-sensitive substring heuristic. It will miss novel
// phrasings.
type QRDetector struct {
	Keywords []string
}

func (d QRDetector) Detect(text string) bool {
	kw := d.Keywords
	if len(kw) == 0 {
		kw = DefaultQRKeywords
	}
	for _, k := range kw {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
