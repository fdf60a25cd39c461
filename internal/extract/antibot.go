package extract

import "strings"

// DefaultAntiBotMarkers are phrases served by verification interstitials.
var DefaultAntiBotMarkers = []string{"环境异常", "完成验证后即可继续访问", "去验证"}

// AntiBotGuidance tells operators how to get past a verification wall.
const AntiBotGuidance = "该微信公众号文章需要验证才能访问。请手动复制文章内容，然后使用「文本」输入方式进行识别"

type AntiBotDetector struct {
	markers []string
}

func NewAntiBotDetector(markers []string) AntiBotDetector {
	if len(markers) == 0 {
		markers = DefaultAntiBotMarkers
	}
	return AntiBotDetector{markers: markers}
}

// Blocked reports whether text looks like a challenge page.
func (d AntiBotDetector) Blocked(text string) bool {
	for _, m := range d.markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
