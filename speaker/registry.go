// Package speaker maps the engine's opaque speaker tags to stable, renamable
// identities for the duration of one session.
package speaker

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/kbukum/diarlive/errors"
)

// DefaultAnimationWindow is how long a renamed identity stays in the
// animating set.
const DefaultAnimationWindow = 500 * time.Millisecond

// Identity is the registry's view of one speaker tag.
type Identity struct {
	SpeakerTag      string  `json:"speaker_tag"`
	DisplayName     string  `json:"display_name"`
	IsIdentified    bool    `json:"is_identified"`
	Confidence      float64 `json:"confidence"`
	PositionalIndex int     `json:"positional_index"`
}

// Band returns the confidence marker to show for the identity. Positional
// names carry no marker.
func (i Identity) Band() ConfidenceBand {
	if !i.IsIdentified {
		return BandNone
	}
	return BandFor(i.Confidence)
}

// PositionalName is the default label for the n-th speaker of a session.
func PositionalName(n int) string {
	return fmt.Sprintf("Speaker %d", n)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for animation expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithAnimationWindow overrides DefaultAnimationWindow.
func WithAnimationWindow(d time.Duration) Option {
	return func(r *Registry) { r.window = d }
}

// Registry holds the identities of the current session. Identities are
// never removed until Reset. Not safe for concurrent use.
type Registry struct {
	now    func() time.Time
	window time.Duration

	identities map[string]*Identity
	order      []string
	animating  map[string]time.Time
	current    string
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		now:        time.Now,
		window:     DefaultAnimationWindow,
		identities: make(map[string]*Identity),
		animating:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterIfAbsent creates an identity named after positionalIndex unless
// tag is already known. It reports whether a new identity was created.
func (r *Registry) RegisterIfAbsent(tag string, positionalIndex int) bool {
	r.ExpireAnimations()
	if _, ok := r.identities[tag]; ok {
		return false
	}
	r.identities[tag] = &Identity{
		SpeakerTag:      tag,
		DisplayName:     PositionalName(positionalIndex),
		PositionalIndex: positionalIndex,
	}
	r.order = append(r.order, tag)
	return true
}

// NextPositionalIndex is the index the next new tag should receive.
func (r *Registry) NextPositionalIndex() int {
	return len(r.order) + 1
}

// ApplyIdentification names tag. A change of display name starts the
// animation window unless one is already running for the tag; a
// confidence-only update never animates.
func (r *Registry) ApplyIdentification(tag, name string, confidence float64) error {
	r.ExpireAnimations()
	id, ok := r.identities[tag]
	if !ok {
		return errors.UnknownSpeaker(tag)
	}
	if id.DisplayName != name {
		if _, running := r.animating[tag]; !running {
			r.animating[tag] = r.now().Add(r.window)
		}
	}
	id.DisplayName = name
	id.IsIdentified = true
	id.Confidence = confidence
	return nil
}

// ExpireAnimations drops animations whose window has elapsed and reports
// whether anything changed.
func (r *Registry) ExpireAnimations() bool {
	if len(r.animating) == 0 {
		return false
	}
	now := r.now()
	changed := false
	for tag, until := range r.animating {
		if !now.Before(until) {
			delete(r.animating, tag)
			changed = true
		}
	}
	return changed
}

// Animating returns the sorted tags currently inside their animation window.
func (r *Registry) Animating() []string {
	tags := make([]string, 0, len(r.animating))
	for tag := range r.animating {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// IsAnimating reports whether tag is inside its animation window.
func (r *Registry) IsAnimating(tag string) bool {
	_, ok := r.animating[tag]
	return ok
}

// Identity returns a copy of tag's identity.
func (r *Registry) Identity(tag string) (Identity, bool) {
	id, ok := r.identities[tag]
	if !ok {
		return Identity{}, false
	}
	return *id, true
}

// Identities returns copies of all identities in registration order.
func (r *Registry) Identities() []Identity {
	out := make([]Identity, 0, len(r.order))
	for _, tag := range r.order {
		out = append(out, *r.identities[tag])
	}
	return out
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string { return slices.Clone(r.order) }

// Len returns the number of registered identities.
func (r *Registry) Len() int { return len(r.order) }

// SetCurrent moves the highlight pointer. An empty tag clears it.
func (r *Registry) SetCurrent(tag string) { r.current = tag }

// Current returns the highlighted tag.
func (r *Registry) Current() string { return r.current }

// Reset clears every identity for a new session.
func (r *Registry) Reset() {
	r.identities = make(map[string]*Identity)
	r.order = nil
	r.animating = make(map[string]time.Time)
	r.current = ""
}
