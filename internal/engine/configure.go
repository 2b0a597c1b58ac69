package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tverho/mailchat-go/internal/event"
)

// Configure progress milestones, in permille. Failure and success use
// the reserved terminal sentinels.
const (
	progressStarted      = 10
	progressResolved     = 200
	progressIMAPProbing  = 400
	progressIMAPUp       = 600
	progressSMTPUp       = 800
	progressSettingsSave = 900
)

// configuredKey marks a successfully configured account in the store.
const configuredKey = "configured"

// Configure starts asynchronous account configuration: transport
// resolution, an IMAP probe, and an SMTP probe, with progress and
// milestone events along the way and exactly one completion signal at
// the end. Callers observe it with a track.ConfigureTracker registered
// as a sink before the call.
func (e *Engine) Configure(ctx context.Context) {
	go e.configure(ctx)
}

func (e *Engine) configure(ctx context.Context) {
	err := e.runConfigure(ctx)
	if err == nil {
		e.emit(event.New(event.ConfigureProgress, event.ProgressSuccess, nil))
		e.completeConfigure(true)

		return
	}

	e.logger.Error("configure failed", slog.String("error", err.Error()))
	e.emit(event.New(event.Error, nil, err.Error()))
	e.emit(event.New(event.ConfigureProgress, event.ProgressFailed, nil))
	e.completeConfigure(false)
}

// runConfigure performs the stages in order, emitting progress as each
// completes. Any error aborts the remaining stages.
func (e *Engine) runConfigure(ctx context.Context) error {
	e.emit(event.New(event.ConfigureProgress, progressStarted, nil))
	e.emit(event.New(event.Info, nil, fmt.Sprintf("configuring %s", e.cfg.Addr)))

	imapT := e.imapTransport()
	smtpT := e.smtpTransport()

	e.emit(event.New(event.ConfigureProgress, progressResolved, nil))
	e.emit(event.New(event.Info, nil,
		fmt.Sprintf("transports: imap=%s (%s) smtp=%s (%s)", imapT.addr(), imapT.security, smtpT.addr(), smtpT.security)))

	e.emit(event.New(event.ConfigureProgress, progressIMAPProbing, nil))

	imapProbe, err := e.dialIMAP(ctx)
	if err != nil {
		return err
	}

	_ = imapProbe.Close()

	e.emit(event.New(event.IMAPConnected, nil, nil))
	e.emit(event.New(event.ConfigureProgress, progressIMAPUp, nil))

	smtpProbe, err := e.dialSMTP(ctx)
	if err != nil {
		return err
	}

	_ = smtpProbe.Close()

	e.emit(event.New(event.SMTPConnected, nil, nil))
	e.emit(event.New(event.ConfigureProgress, progressSMTPUp, nil))

	if err := e.saveTransports(ctx, imapT, smtpT); err != nil {
		return err
	}

	e.emit(event.New(event.ConfigureProgress, progressSettingsSave, nil))

	return nil
}

// saveTransports persists the probed settings so status and later runs
// can report them without re-probing.
func (e *Engine) saveTransports(ctx context.Context, imapT, smtpT transport) error {
	for key, value := range map[string]string{
		configuredKey:   "1",
		"addr":          e.cfg.Addr.String(),
		"imap_host":     imapT.host,
		"imap_port":     fmt.Sprintf("%d", imapT.port),
		"imap_security": imapT.security,
		"smtp_host":     smtpT.host,
		"smtp_port":     fmt.Sprintf("%d", smtpT.port),
		"smtp_security": smtpT.security,
	} {
		if err := e.store.SetConfig(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

// IsConfigured reports whether a configure run has completed
// successfully for this account's store.
func (e *Engine) IsConfigured(ctx context.Context) (bool, error) {
	v, err := e.store.GetConfig(ctx, configuredKey)
	if err != nil {
		return false, err
	}

	return v == "1", nil
}
