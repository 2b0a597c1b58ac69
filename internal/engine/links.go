package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-sasl"

	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/tokenfile"
)

// incoming is one message pulled off the IMAP link, reduced to what the
// store needs.
type incoming struct {
	msgID string // RFC 5322 Message-ID
	from  string
	body  string
	time  time.Time
}

// imapLink is the receive side of the account's transport. FetchNew
// returns messages not yet seen; Wait blocks until the server reports
// news, the wake channel fires, or poll elapses.
type imapLink interface {
	FetchNew(ctx context.Context) ([]incoming, error)
	Wait(ctx context.Context, wake <-chan struct{}, poll time.Duration) error
	Close() error
}

// smtpLink is the submit side of the account's transport.
type smtpLink interface {
	Submit(from, to string, raw []byte) error
	Close() error
}

// transport holds the fully resolved connection settings for one link.
type transport struct {
	host     string
	port     int
	security string
}

func (t transport) addr() string {
	return fmt.Sprintf("%s:%d", t.host, t.port)
}

// Default ports per security mode.
const (
	imapTLSPort      = 993
	imapStartTLSPort = 143
	smtpTLSPort      = 465
	smtpStartTLSPort = 587
)

// imapTransport resolves the IMAP settings, falling back to provider
// autoconfiguration (imap.<domain>, implicit TLS) for unset fields.
func (e *Engine) imapTransport() transport {
	acct := e.cfg.Account

	t := transport{
		host:     acct.IMAPHost,
		port:     acct.IMAPPort,
		security: acct.IMAPSecurity,
	}

	if t.host == "" {
		t.host = "imap." + e.cfg.Addr.Domain()
	}

	if t.security == "" {
		t.security = config.SecurityTLS
	}

	if t.port == 0 {
		t.port = imapTLSPort
		if t.security == config.SecurityStartTLS {
			t.port = imapStartTLSPort
		}
	}

	return t
}

// smtpTransport resolves the SMTP settings the same way.
func (e *Engine) smtpTransport() transport {
	acct := e.cfg.Account

	t := transport{
		host:     acct.SMTPHost,
		port:     acct.SMTPPort,
		security: acct.SMTPSecurity,
	}

	if t.host == "" {
		t.host = "smtp." + e.cfg.Addr.Domain()
	}

	if t.security == "" {
		t.security = config.SecurityTLS
	}

	if t.port == 0 {
		t.port = smtpTLSPort
		if t.security == config.SecurityStartTLS {
			t.port = smtpStartTLSPort
		}
	}

	return t
}

// saslClient builds the SASL mechanism for a link: OAUTHBEARER from
// the account's token file, or PLAIN with the resolved password.
func (e *Engine) saslClient(t transport) (sasl.Client, error) {
	if e.cfg.Account.Auth == config.AuthOAuth {
		tok, _, err := tokenfile.Load(e.cfg.TokenPath)
		if err != nil {
			return nil, err
		}

		if tok == nil {
			return nil, fmt.Errorf("engine: no token file for %s (run authorization first)", e.cfg.Addr)
		}

		return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: e.cfg.Addr.String(),
			Token:    tok.AccessToken,
			Host:     t.host,
			Port:     t.port,
		}), nil
	}

	if e.cfg.Password == "" {
		return nil, fmt.Errorf("engine: no password for %s (set %s or the config key)",
			e.cfg.Addr, config.EnvPassword)
	}

	return sasl.NewPlainClient("", e.cfg.Addr.String(), e.cfg.Password), nil
}
