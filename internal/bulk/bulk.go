// Package bulk applies one write action to many selected sites, one at a
// time, and reports the aggregate outcome once.
package bulk

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/scrapedeck/internal/async"
	"github.com/five82/scrapedeck/internal/scraper"
)

// Action is a bulk write.
type Action int

const (
	Enable Action = iota
	Disable
	Delete
)

func (a Action) String() string {
	switch a {
	case Enable:
		return "enable"
	case Disable:
		return "disable"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

func (a Action) pastTense() string {
	switch a {
	case Enable:
		return "Enabled"
	case Disable:
		return "Disabled"
	case Delete:
		return "Deleted"
	default:
		return "Processed"
	}
}

// Result is the accounted outcome of one bulk run.
type Result struct {
	Action     Action
	Requested  int
	Succeeded  int
	Skipped    int // already in the target state; included in Succeeded
	FailedKeys map[string]struct{}
}

// Failed returns the number of failed keys.
func (r Result) Failed() int { return len(r.FailedKeys) }

// FailedList returns failed keys in sorted order.
func (r Result) FailedList() []string {
	keys := make([]string, 0, len(r.FailedKeys))
	for k := range r.FailedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary renders the result as one user-facing sentence.
func (r Result) Summary() string {
	noun := "sites"
	if r.Requested == 1 {
		noun = "site"
	}
	msg := fmt.Sprintf("%s %d of %d %s", r.Action.pastTense(), r.Succeeded, r.Requested, noun)
	if r.Skipped > 0 {
		msg += fmt.Sprintf(" (%d already %sd)", r.Skipped, r.Action)
	}
	if failed := r.FailedList(); len(failed) > 0 {
		msg += "; failed: " + strings.Join(failed, ", ")
	}
	return msg
}

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notification is the single message emitted after a bulk run.
type Notification struct {
	Level   Level
	Message string
	Result  Result
}

// Notifier receives bulk notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Sequencer runs bulk actions through the toggle and delete mutations.
type Sequencer struct {
	toggle *async.Mutation[string, scraper.MessageResponse]
	remove *async.Mutation[string, struct{}]
	notify Notifier
	logger *zap.Logger
}

// Options configure a Sequencer.
type Options struct {
	Logger   *zap.Logger
	Observer async.Observer
	Notifier Notifier
}

// NewSequencer builds a Sequencer over api.
func NewSequencer(api scraper.API, opts Options) *Sequencer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bulk")
	return &Sequencer{
		toggle: async.NewMutation(api.ToggleSite, async.MutationOptions{
			Name: "toggle_site", Logger: logger, Observer: opts.Observer,
		}),
		remove: async.NewMutation(func(ctx context.Context, key string) (struct{}, error) {
			return struct{}{}, api.DeleteSite(ctx, key)
		}, async.MutationOptions{
			Name: "delete_site", Logger: logger, Observer: opts.Observer,
		}),
		notify: opts.Notifier,
		logger: logger,
	}
}

// Busy reports whether a write is in flight.
func (s *Sequencer) Busy() bool {
	return s.toggle.State().Loading || s.remove.State().Loading
}

// Run applies action to every selected key, strictly one after another.
// Enable and disable consult sites and skip keys already in the target
// state. A failing key never stops the loop; once ctx is done the remaining
// keys are recorded as failed without being attempted. Exactly one
// notification is sent when the loop ends.
func (s *Sequencer) Run(ctx context.Context, action Action, selected []string, sites []scraper.Site) Result {
	keys := dedupe(selected)
	result := Result{
		Action:     action,
		Requested:  len(keys),
		FailedKeys: make(map[string]struct{}),
	}
	byKey := make(map[string]scraper.Site, len(sites))
	for _, site := range sites {
		byKey[site.Key] = site
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			result.FailedKeys[key] = struct{}{}
			continue
		}
		ok, skipped := s.apply(ctx, action, key, byKey)
		switch {
		case skipped:
			result.Succeeded++
			result.Skipped++
		case ok:
			result.Succeeded++
		default:
			result.FailedKeys[key] = struct{}{}
		}
	}

	s.logger.Info("bulk action finished",
		zap.Stringer("action", action),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Strings("failed", result.FailedList()))

	if s.notify != nil {
		level := LevelInfo
		switch {
		case result.Failed() > 0 && result.Succeeded == 0:
			level = LevelError
		case result.Failed() > 0:
			level = LevelWarn
		}
		s.notify.Notify(Notification{Level: level, Message: result.Summary(), Result: result})
	}
	return result
}

func (s *Sequencer) apply(ctx context.Context, action Action, key string, sites map[string]scraper.Site) (ok, skipped bool) {
	switch action {
	case Delete:
		_, err := s.remove.Mutate(ctx, key)
		return err == nil, false
	case Enable, Disable:
		site, known := sites[key]
		if !known {
			s.logger.Warn("bulk target not in site list", zap.String("site", key))
			return false, false
		}
		if site.Enabled == (action == Enable) {
			return true, true
		}
		_, err := s.toggle.Mutate(ctx, key)
		return err == nil, false
	default:
		return false, false
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
