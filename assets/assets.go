// Package assets is the boundary to the external asset collaborators
// (images, audio, generated voice). The core treats these as
// fire-and-forget: a request that fails or never completes must not
// stall dialogue or ticking, and a completion that arrives after the
// owning scene has moved on must be dropped.
package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies a resource for fallback resolution.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVoice Kind = "voice"
)

// Resolver resolves a resource name to a path by walking an ordered
// candidate list per kind, terminating in a guaranteed placeholder.
// One fallback chain, parameterized by kind, instead of a copy per
// asset type.
type Resolver struct {
	root         string
	candidates   map[Kind][]string // path templates, {name} substituted
	placeholders map[Kind]string
	log          *zap.Logger
}

// NewResolver builds a resolver rooted at dir with the default
// candidate chains.
func NewResolver(dir string, log *zap.Logger) *Resolver {
	return &Resolver{
		root: dir,
		candidates: map[Kind][]string{
			KindImage: {"images/{name}.png", "images/{name}.jpg", "generated/{name}.png"},
			KindAudio: {"audio/{name}.ogg", "audio/{name}.mp3"},
			KindVoice: {"voice/{name}.ogg", "generated/voice/{name}.ogg"},
		},
		placeholders: map[Kind]string{
			KindImage: "placeholder.png",
			KindAudio: "silence.ogg",
			KindVoice: "silence.ogg",
		},
		log: log,
	}
}

// Resolve returns the first existing candidate path, or the kind's
// placeholder. It always succeeds; a missing asset is logged, not
// raised.
func (r *Resolver) Resolve(kind Kind, name string) string {
	for _, tmpl := range r.candidates[kind] {
		p := filepath.Join(r.root, strings.ReplaceAll(tmpl, "{name}", name))
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	r.log.Debug("asset missing, using placeholder",
		zap.String("kind", string(kind)), zap.String("name", name))
	return filepath.Join(r.root, r.placeholders[kind])
}

// Result is delivered to a request's callback.
type Result struct {
	ID          uuid.UUID
	Kind        Kind
	Name        string
	Path        string
	Placeholder bool // true when the fallback chain bottomed out
}

// Manager runs asset requests off the core loop. Completions are
// marshalled back through the host-provided dispatch function so the
// core stays single-threaded. Invalidate bumps a generation counter;
// completions from an older generation are dropped, which is how
// scene switches cancel their in-flight requests.
type Manager struct {
	resolver *Resolver
	dispatch func(func())
	log      *zap.Logger

	mu  sync.Mutex
	gen uint64
}

// NewManager creates a manager. dispatch must execute the given
// function on the core's loop; passing nil runs completions inline
// (tests, scripted playback).
func NewManager(resolver *Resolver, dispatch func(func()), log *zap.Logger) *Manager {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Manager{resolver: resolver, dispatch: dispatch, log: log}
}

// SetDispatch replaces the completion dispatch. Hosts whose loop does
// not exist at composition time (the Bubble Tea program, the CLI read
// loop) install theirs here before gameplay begins. A nil dispatch
// restores inline delivery.
func (m *Manager) SetDispatch(dispatch func(func())) {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	m.mu.Lock()
	m.dispatch = dispatch
	m.mu.Unlock()
}

// Request resolves an asset off-loop and delivers the result. The
// returned id identifies the request; a result delivered after
// Invalidate is a dropped no-op.
func (m *Manager) Request(kind Kind, name string, deliver func(Result)) uuid.UUID {
	id := uuid.New()
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	go func() {
		path := m.resolver.Resolve(kind, name)
		res := Result{
			ID:          id,
			Kind:        kind,
			Name:        name,
			Path:        path,
			Placeholder: filepath.Base(path) == filepath.Base(m.resolver.placeholders[kind]),
		}
		m.mu.Lock()
		dispatch := m.dispatch
		m.mu.Unlock()
		dispatch(func() {
			m.mu.Lock()
			stale := gen != m.gen
			m.mu.Unlock()
			if stale {
				m.log.Debug("dropping stale asset result",
					zap.String("name", name), zap.String("kind", string(kind)))
				return
			}
			deliver(res)
		})
	}()
	return id
}

// Invalidate cancels all outstanding requests' effects. Called on
// location change and restart.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
}
