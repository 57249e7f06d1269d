package shoutrrr

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

// Settings controls which pipeline events go out. Shoutrrr URLs carry
// the transport (telegram://, discord://, smtp:// and so on).
type Settings struct {
	Enabled     bool
	OnUpload    bool
	OnOCRDone   bool
	OnAnalysis  bool
	ServiceName string
	Timeout     time.Duration
}

// Notifier delivers pipeline events through shoutrrr. A disabled or
// URL-less notifier is a no-op, not an error.
type Notifier struct {
	settings  Settings
	urls      []string
	sender    *router.ServiceRouter
	onFailure func(event string)
}

// SetFailureHook registers a callback invoked when delivery fails, so the
// caller can count failures without coupling this package to metrics.
// Set it before the notifier is shared between goroutines.
func (n *Notifier) SetFailureHook(hook func(event string)) {
	n.onFailure = hook
}

func New(urls []string, settings Settings) (*Notifier, error) {
	n := &Notifier{
		settings: settings,
		urls:     slices.Clone(urls),
	}
	if settings.ServiceName == "" {
		n.settings.ServiceName = "docudesk"
	}
	if !settings.Enabled || len(urls) == 0 {
		return n, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create shoutrrr sender: %w", err)
	}
	if settings.Timeout > 0 {
		sender.Timeout = settings.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

func (n *Notifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	if n.sender == nil || !n.wants(event.Type) {
		return nil
	}
	_ = ctx // the router applies its own timeout

	params := stypes.Params{}
	params.SetTitle(n.title(event))

	errs := n.sender.Send(n.body(event), &params)
	for _, err := range errs {
		if err != nil {
			if n.onFailure != nil {
				n.onFailure(string(event.Type))
			}
			return fmt.Errorf("shoutrrr send: %w", err)
		}
	}
	return nil
}

func (n *Notifier) wants(kind domain.NotificationType) bool {
	switch kind {
	case domain.NotifyUpload:
		return n.settings.OnUpload
	case domain.NotifyOCRComplete:
		return n.settings.OnOCRDone
	case domain.NotifyAnalysisComplete:
		return n.settings.OnAnalysis
	case domain.NotifyError:
		return true
	default:
		return false
	}
}

func (n *Notifier) title(event domain.NotificationEvent) string {
	switch event.Type {
	case domain.NotifyUpload:
		return fmt.Sprintf("[%s] document uploaded", n.settings.ServiceName)
	case domain.NotifyOCRComplete:
		return fmt.Sprintf("[%s] OCR complete", n.settings.ServiceName)
	case domain.NotifyAnalysisComplete:
		return fmt.Sprintf("[%s] analysis complete", n.settings.ServiceName)
	case domain.NotifyError:
		return fmt.Sprintf("[%s] processing failed", n.settings.ServiceName)
	default:
		return n.settings.ServiceName
	}
}

func (n *Notifier) body(event domain.NotificationEvent) string {
	if event.Message != "" {
		return fmt.Sprintf("%s: %s", event.DocumentName, event.Message)
	}
	return event.DocumentName
}
