package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/friday/pkg/provider/speech"
	"github.com/MrWong99/friday/pkg/provider/sysops"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested backend name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps backend names to their constructor functions for each
// backend kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	transcribe map[string]func(ProviderEntry) (transcribe.Transcriber, error)
	speech     map[string]func(ProviderEntry) (speech.Speaker, error)
	sysops     map[string]func(SysOpsConfig) (sysops.Operations, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		transcribe: make(map[string]func(ProviderEntry) (transcribe.Transcriber, error)),
		speech:     make(map[string]func(ProviderEntry) (speech.Speaker, error)),
		sysops:     make(map[string]func(SysOpsConfig) (sysops.Operations, error)),
	}
}

// RegisterTranscriber registers a transcription backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTranscriber(name string, factory func(ProviderEntry) (transcribe.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribe[name] = factory
}

// RegisterSpeaker registers a speech backend factory under name.
func (r *Registry) RegisterSpeaker(name string, factory func(ProviderEntry) (speech.Speaker, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// RegisterSysOps registers a system-operations backend factory under name.
func (r *Registry) RegisterSysOps(name string, factory func(SysOpsConfig) (sysops.Operations, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sysops[name] = factory
}

// CreateTranscriber instantiates the transcription backend registered under
// entry.Name. Returns [ErrProviderNotRegistered] if there is none.
func (r *Registry) CreateTranscriber(entry ProviderEntry) (transcribe.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.transcribe[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcription/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSpeaker instantiates the speech backend registered under entry.Name.
func (r *Registry) CreateSpeaker(entry ProviderEntry) (speech.Speaker, error) {
	r.mu.RLock()
	factory, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSysOps instantiates the system-operations backend named by cfg.Name.
func (r *Registry) CreateSysOps(cfg SysOpsConfig) (sysops.Operations, error) {
	r.mu.RLock()
	factory, ok := r.sysops[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sysops/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// Names returns the registered backend names of kind ("transcription",
// "speech" or "sysops"), sorted.
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch kind {
	case "transcription":
		for n := range r.transcribe {
			names = append(names, n)
		}
	case "speech":
		for n := range r.speech {
			names = append(names, n)
		}
	case "sysops":
		for n := range r.sysops {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}
