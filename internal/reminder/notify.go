package reminder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"daybook/internal/logs"
)

const (
	notificationTitle = "Reminder"
	notifyTimeout     = 5 * time.Second
)

// Permission mirrors the three states of a desktop notification grant.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifier shows system notifications.
type Notifier interface {
	Permission() Permission
	RequestPermission() Permission
	Notify(title, body string) error
}

// Alerter shows a message the user has to acknowledge. It is the fallback
// when notifications are unavailable.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// WriterAlerter rings the terminal bell and prints the message.
type WriterAlerter struct {
	W io.Writer
}

func (a WriterAlerter) Alert(message string) {
	fmt.Fprintf(a.W, "\a%s\n", message)
}

// DesktopNotifier sends notifications through notify-send. Permission is
// granted once the binary is found on PATH.
type DesktopNotifier struct {
	mu       sync.Mutex
	perm     Permission
	disabled bool
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier returns a notifier; when enabled is false it always
// reports PermissionDenied.
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	n := &DesktopNotifier{
		perm:     PermissionDefault,
		disabled: !enabled,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
	if n.disabled {
		n.perm = PermissionDenied
	}
	return n
}

func (n *DesktopNotifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.perm
}

func (n *DesktopNotifier) RequestPermission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.perm != PermissionDefault {
		return n.perm
	}
	if _, err := n.lookPath("notify-send"); err != nil {
		n.perm = PermissionDenied
	} else {
		n.perm = PermissionGranted
	}
	return n.perm
}

func (n *DesktopNotifier) Notify(title, body string) error {
	if n.Permission() != PermissionGranted {
		return fmt.Errorf("notifications not permitted")
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	return n.run(ctx, "notify-send", "--app-name=daybook", title, body)
}

// Deliverer presents a fired reminder to the user.
type Deliverer struct {
	notifier Notifier
	alerter  Alerter
	log      *logs.Logger
}

func NewDeliverer(notifier Notifier, alerter Alerter, log *logs.Logger) *Deliverer {
	if log == nil {
		log = logs.Nop()
	}
	return &Deliverer{notifier: notifier, alerter: alerter, log: log.WithComponent("reminder")}
}

// Deliver shows a notification for text, falling back to an alert when
// notifications are not granted or fail.
func (d *Deliverer) Deliver(text string) {
	if d.notifier != nil && d.notifier.Permission() == PermissionGranted {
		err := d.notifier.Notify(notificationTitle, "Don't forget: "+text)
		if err == nil {
			d.log.Infow("reminder delivered", "via", "notification", "text", text)
			return
		}
		d.log.Debugw("notification failed, falling back to alert", "error", err)
	}
	if d.alerter != nil {
		d.alerter.Alert("Reminder: " + text)
		d.log.Infow("reminder delivered", "via", "alert", "text", text)
	}
}
