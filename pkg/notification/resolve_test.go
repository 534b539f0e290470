package notification

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pushover.AppToken = "tok"
	cfg.Pushover.UserAPIKey = "usr"
	return cfg
}

func TestResolve(t *testing.T) {
	cfg := testConfig()

	n, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*PushoverClient); !ok {
		t.Errorf("pushover plugin resolved to %T", n)
	}

	cfg.Notifier.Plugin = config.PluginEmail
	n, err = Resolve(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*EmailNotifier); !ok {
		t.Errorf("email plugin resolved to %T", n)
	}

	cfg.Notifier.Plugin = "fax"
	if _, err := Resolve(cfg); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestReplyLink(t *testing.T) {
	if got := ReplyLink(config.ReplyConfig{}, "net", "#chan"); got != "" {
		t.Errorf("expected no link without reply server, got %q", got)
	}

	cfg := config.ReplyConfig{Server: "https://reply.example/", Secret: "s3cret"}
	link := ReplyLink(cfg, "net", "#chan")

	if !strings.HasPrefix(link, "https://reply.example/reply?") {
		t.Fatalf("unexpected link %q", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("network") != "net" || q.Get("target") != "#chan" {
		t.Errorf("query = %v", q)
	}
	if q.Get("token") != ReplyToken("s3cret", "net", "#chan") {
		t.Errorf("token mismatch")
	}
	if strings.Contains(link, "s3cret") {
		t.Error("secret must not appear in the link")
	}
}

func TestReplyToken(t *testing.T) {
	a := ReplyToken("k", "net", "#chan")
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64", len(a))
	}
	if a != ReplyToken("k", "net", "#chan") {
		t.Error("token must be deterministic")
	}
	if a == ReplyToken("k", "ne", "t#chan") {
		t.Error("field boundary must be part of the token")
	}
	if a == ReplyToken("other", "net", "#chan") {
		t.Error("token must depend on the secret")
	}
}
