package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

// ReplyLinkTitle labels the reply deep-link in push notifications.
const ReplyLinkTitle = "Reply"

// ReplyLink builds the deep-link into the reply service for a conversation.
// It returns "" when no reply server is configured. The token lets the
// server verify the link was issued for this network and target.
func ReplyLink(cfg config.ReplyConfig, network, target string) string {
	if cfg.Server == "" || cfg.Secret == "" {
		return ""
	}

	q := url.Values{}
	q.Set("network", network)
	q.Set("target", target)
	q.Set("token", ReplyToken(cfg.Secret, network, target))

	return strings.TrimRight(cfg.Server, "/") + "/reply?" + q.Encode()
}

// ReplyToken is hex(HMAC-SHA256(secret, network NUL target)).
func ReplyToken(secret, network, target string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(network))
	mac.Write([]byte{0})
	mac.Write([]byte(target))
	return hex.EncodeToString(mac.Sum(nil))
}
