package notification

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/wneessen/go-mail"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

const defaultSMTPPort = 587

// mailSession is an open, authenticated SMTP session.
type mailSession interface {
	Send(messages ...*mail.Msg) error
	Close() error
}

type dialFunc func(ctx context.Context, cfg config.EmailConfig) (mailSession, error)

// EmailNotifier sends each notification as one plain text mail over a
// fresh STARTTLS session.
type EmailNotifier struct {
	cfg  config.EmailConfig
	dial dialFunc
}

// NewEmailNotifier creates an email backend for cfg.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, dial: dialSMTP}
}

// Send opens a session, sends one message and closes the session again.
func (e *EmailNotifier) Send(ctx context.Context, n Notification) (err error) {
	msg, err := e.buildMessage(n)
	if err != nil {
		return &DeliveryError{Backend: "email", Err: err}
	}

	sess, err := e.dial(ctx, e.cfg)
	if err != nil {
		return &DeliveryError{Backend: "email", Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = &DeliveryError{Backend: "email", Err: cerr}
		}
	}()

	if err := sess.Send(msg); err != nil {
		return &DeliveryError{Backend: "email", Err: err}
	}
	return nil
}

func (e *EmailNotifier) buildMessage(n Notification) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from_email: %w", err)
	}
	if err := m.To(e.cfg.ToEmail); err != nil {
		return nil, fmt.Errorf("invalid to_email: %w", err)
	}
	m.Subject(n.Title)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, emailBody(n))
	return m, nil
}

// emailBody appends the deep-link, if any, as plain text.
func emailBody(n Notification) string {
	if n.URL == "" {
		return n.Message
	}
	return n.Message + " " + n.URL
}

func dialSMTP(ctx context.Context, cfg config.EmailConfig) (mailSession, error) {
	host, port, err := splitHostPort(cfg.SMTPHost)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
	}
	if cfg.DebugLevel > 0 {
		opts = append(opts, mail.WithDebugLog())
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// splitHostPort accepts "host" or "host:port".
func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// no port given
		return hostport, defaultSMTPPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid smtp port %q", portStr)
	}
	return host, port, nil
}
