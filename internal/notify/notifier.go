// Package notify detects checkpoint crossings for user-configured rules
// and hands matched events to a delivery mechanism.
package notify

import (
	"errors"
	"log/slog"

	"github.com/psford/t-tracker/internal/logging"
)

// Permission mirrors the platform notification permission states.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionDefault     Permission = "default"
	PermissionUnsupported Permission = "unsupported"
)

// Notification is the payload handed to the delivery mechanism. Tag is a
// de-duplication key for platforms that collapse repeated notifications.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// Notifier delivers notifications through some platform mechanism. The
// matcher queries Permission before every attempt and skips delivery
// (without failing the match) when it is not granted.
type Notifier interface {
	Permission() Permission
	Notify(n Notification) error
}

// Fanout composes several delivery mechanisms. Permission is granted when
// any member grants it; Notify delivers to every granted member.
type Fanout []Notifier

func (f Fanout) Permission() Permission {
	if len(f) == 0 {
		return PermissionUnsupported
	}
	for _, n := range f {
		if n.Permission() == PermissionGranted {
			return PermissionGranted
		}
	}
	return PermissionDefault
}

func (f Fanout) Notify(n Notification) error {
	var errs []error
	for _, sub := range f {
		if sub.Permission() != PermissionGranted {
			continue
		}
		if err := sub.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the structured log. It is the
// fallback delivery mechanism and always reports granted.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Permission() Permission { return PermissionGranted }

func (l *LogNotifier) Notify(n Notification) error {
	logging.LogOperation(l.Logger, "notification",
		slog.String("title", n.Title),
		slog.String("body", n.Body),
		slog.String("tag", n.Tag))
	return nil
}
