package fetch

import (
	"net/http"
	"strings"
)

// BlockType classifies an anti-bot rejection.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// detectBlock checks a response for anti-bot protection. Federation result
// pages behind Cloudflare return 403/503 challenge shells that would
// otherwise parse as zero rows; treating them as failed attempts lets the
// fallback chain try a mirror instead.
func detectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, BlockCloudflare
	}
	if strings.Contains(lower, "recaptcha") || strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}
	return false, BlockNone
}
