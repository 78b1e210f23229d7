package autoprobe

import (
	"slices"
	"strings"
)

// SetFeature enables the unstable feature name for all subsequent probes.
// Only nightly and dev toolchains accept feature gates; elsewhere probes
// that carry one fail.
func (p *Prober) SetFeature(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.features[name] = struct{}{}
}

// UnsetFeature disables the unstable feature name.
func (p *Prober) UnsetFeature(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.features, strings.TrimSpace(name))
}

// Features returns the enabled unstable features in sorted order.
func (p *Prober) Features() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.features))
	for name := range p.features {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
