package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"heicrop/internal/logging"
)

// RevokeHook observes every revocation. It runs after the handle has been
// removed from the live set.
type RevokeHook func(*Handle)

// Option configures a Ledger.
type Option func(*Ledger)

// WithRevokeHook installs a hook called once per revoked handle.
func WithRevokeHook(hook RevokeHook) Option {
	return func(l *Ledger) {
		l.onRevoke = hook
	}
}

// WithLogger attaches a logger for debug-level lifecycle records.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logging.NewComponentLogger(logger, "ledger")
	}
}

// Ledger is the registry of live handles.
type Ledger struct {
	live     map[string]*Handle
	byTag    map[Tag]*Handle
	onRevoke RevokeHook
	logger   *slog.Logger
}

// New constructs an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		live:   make(map[string]*Handle),
		byTag:  make(map[Tag]*Handle),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds h to the live set. A live handle with the same tag is
// released first so at most one handle per tag is ever live. Registering a
// handle that is already live is a no-op.
func (l *Ledger) Register(h *Handle) error {
	if h == nil {
		return errors.New("register: nil handle")
	}
	if h.revoked {
		return fmt.Errorf("register %s: %w", h.uri, ErrRevoked)
	}
	if _, ok := l.live[h.uri]; ok {
		return nil
	}
	if prev, ok := l.byTag[h.tag]; ok {
		l.Release(prev)
	}
	l.live[h.uri] = h
	l.byTag[h.tag] = h
	l.logger.Debug("handle registered",
		logging.String(logging.FieldHandleTag, string(h.tag)),
		logging.String(logging.FieldHandleURI, h.uri),
		logging.Int("bytes", h.size),
	)
	return nil
}

// Release revokes h if it is live. It reports whether this call performed the
// revocation; redundant calls return false and revoke nothing.
func (l *Ledger) Release(h *Handle) bool {
	if h == nil {
		return false
	}
	if _, ok := l.live[h.uri]; !ok {
		return false
	}
	delete(l.live, h.uri)
	if cur, ok := l.byTag[h.tag]; ok && cur == h {
		delete(l.byTag, h.tag)
	}
	h.revoke()
	l.logger.Debug("handle released",
		logging.String(logging.FieldHandleTag, string(h.tag)),
		logging.String(logging.FieldHandleURI, h.uri),
	)
	if l.onRevoke != nil {
		l.onRevoke(h)
	}
	return true
}

// ReleaseAll revokes every live handle and returns how many were revoked.
func (l *Ledger) ReleaseAll() int {
	released := 0
	for _, h := range l.Live() {
		if l.Release(h) {
			released++
		}
	}
	return released
}

// Lookup resolves a display URI to its live handle.
func (l *Ledger) Lookup(uri string) (*Handle, bool) {
	h, ok := l.live[uri]
	return h, ok
}

// ByTag returns the live handle carrying tag.
func (l *Ledger) ByTag(tag Tag) (*Handle, bool) {
	h, ok := l.byTag[tag]
	return h, ok
}

// Live returns the live handles in workflow order (original, converted, cropped).
func (l *Ledger) Live() []*Handle {
	out := make([]*Handle, 0, len(l.live))
	for _, h := range l.live {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].tag.rank() < out[j].tag.rank()
	})
	return out
}

// Len reports the number of live handles.
func (l *Ledger) Len() int {
	return len(l.live)
}

// Tags returns the tags of the live handles in workflow order.
func (l *Ledger) Tags() []Tag {
	live := l.Live()
	out := make([]Tag, 0, len(live))
	for _, h := range live {
		out = append(out, h.tag)
	}
	return out
}
