package resources

import (
	"fmt"
	"sort"
)

// Kind identifies a monitored resource and decides the shape of its buffer.
type Kind int

const (
	KindCPU Kind = iota
	KindMem
	KindIO
	KindNetwork
)

var kindNames = [...]string{
	KindCPU:     "cpu",
	KindMem:     "mem",
	KindIO:      "io",
	KindNetwork: "network",
}

// String returns the name used in configuration files and result payloads.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// ParseKind maps a resource name ("cpu", "mem", "io", "network") to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Spec maps a resource kind to the names of the nodes it is collected for.
type Spec map[Kind][]string

// ParseSpec converts the configuration form of a spec, keyed by resource name.
func ParseSpec(raw map[string][]string) (Spec, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no resources requested", ErrConfiguration)
	}
	spec := make(Spec, len(raw))
	for name, nodes := range raw {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		spec[kind] = append(spec[kind], nodes...)
	}
	return spec, nil
}

// Nodes returns the distinct node names listed in s, sorted.
func (s Spec) Nodes() []string {
	seen := make(map[string]struct{})
	for _, nodes := range s {
		for _, n := range nodes {
			seen[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
