// internal/app/system/mutation/mutation.go
//
// Package mutation runs a single-entity action against the backend:
//
//	Idle → Submitting → Idle (updated) | Idle (error)
//
// Input is validated before anything is sent. While the request is in
// flight the entity is marked pending and a second submit is rejected. On
// success the server's copy of the entity is merged into the list row, the
// action's section is closed and its staged input cleared. On failure the
// row, the section and the staged input are left alone and an error notice
// is raised. The pending mark is always cleared.
package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/htmlsanitize"
	"github.com/dalemusser/loanadmin/internal/app/system/inputval"
	"github.com/dalemusser/loanadmin/internal/app/system/pending"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"go.uber.org/zap"
)

// Status is how a Run ended.
type Status int

const (
	Updated  Status = iota // backend accepted; row patched
	Failed                 // backend or transport error
	Invalid                // client validation failed; nothing sent
	Busy                   // a mutation for the entity is already pending
	NotFound               // the entity is not in the current list
)

func (s Status) String() string {
	switch s {
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	case Invalid:
		return "invalid"
	case Busy:
		return "busy"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// NoticeLevel styles a notice.
type NoticeLevel string

const (
	LevelSuccess NoticeLevel = "success"
	LevelError   NoticeLevel = "error"
)

// Notice is a transient message shown near the list.
type Notice struct {
	Level   NoticeLevel
	Text    string
	Entity  int64
	Expires time.Time // zero: until dismissed
}

// List is the part of a list controller a mutation touches.
type List[T models.Entity] interface {
	Find(id int64) (T, bool)
	Patch(id int64, fn func(T) T) bool
}

// Host receives the UI side effects of a mutation.
type Host interface {
	CloseSection(id int64, section string)
	ClearStaged(id int64, action string)
	Notify(n Notice)
}

// Action describes one mutation.
type Action[T models.Entity] struct {
	Name    string // staged-input key, e.g. "approve"
	Section string // section closed on success; "" closes nothing

	Success string // success notice text
	Failure string // error notice text when the backend gives no message

	// NoticeTTL, when positive, makes the success notice expire.
	NoticeTTL time.Duration

	Validate func() inputval.Result
	Submit   func(ctx context.Context) (json.RawMessage, error)

	// Apply folds the server response into the row. Defaults to
	// models.Merge; an empty response leaves the row as Local made it.
	Apply func(cur T, server json.RawMessage) (T, error)
	// Local, when set, is applied to the row before Apply.
	Local func(cur T) T

	Logger *zap.Logger
}

// Outcome reports how Run ended.
type Outcome struct {
	Status Status
	Kind   apiclient.Kind
	Notice Notice
	Err    error
}

// Run executes a for entity id.
func Run[T models.Entity](ctx context.Context, id int64, flags *pending.Flags, list List[T], host Host, a Action[T]) Outcome {
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("action", a.Name), zap.Int64("entity", id))

	if _, ok := list.Find(id); !ok {
		return Outcome{Status: NotFound}
	}

	if a.Validate != nil {
		if res := a.Validate(); res.HasErrors() {
			n := Notice{Level: LevelError, Text: res.First(), Entity: id}
			host.Notify(n)
			return Outcome{Status: Invalid, Kind: apiclient.KindClientValidation, Notice: n}
		}
	}

	if !flags.Begin(id) {
		return Outcome{Status: Busy}
	}
	defer flags.End(id)

	server, err := a.Submit(ctx)
	if err != nil {
		kind := apiclient.KindOf(err)
		n := Notice{
			Level:  LevelError,
			Text:   htmlsanitize.Message(apiclient.MessageOf(err), a.Failure),
			Entity: id,
		}
		log.Warn("mutation failed", zap.Stringer("kind", kind), zap.Error(err))
		host.Notify(n)
		return Outcome{Status: Failed, Kind: kind, Notice: n, Err: err}
	}

	apply := a.Apply
	if apply == nil {
		apply = models.Merge[T]
	}
	list.Patch(id, func(cur T) T {
		if a.Local != nil {
			cur = a.Local(cur)
		}
		if emptyBody(server) {
			return cur
		}
		merged, err := apply(cur, server)
		if err != nil {
			log.Warn("could not merge server response", zap.Error(err))
			return cur
		}
		return merged
	})

	if a.Section != "" {
		host.CloseSection(id, a.Section)
	}
	host.ClearStaged(id, a.Name)

	n := Notice{Level: LevelSuccess, Text: a.Success, Entity: id}
	if a.NoticeTTL > 0 {
		n.Expires = time.Now().Add(a.NoticeTTL)
	}
	host.Notify(n)
	log.Info("mutation applied")
	return Outcome{Status: Updated, Notice: n}
}

func emptyBody(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
