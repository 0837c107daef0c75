package resolver

import (
	"sync"

	"github.com/Masterminds/semver/v3"
)

// NamedResolver is one entry in the process-wide registry: a resolver
// factory discoverable by name, optionally scoped to the binary versions it
// is known to apply to.
type NamedResolver struct {
	Name     string
	Versions *semver.Constraints
	Getter   func() *DynResolverFactory
}

var (
	registryMu sync.Mutex
	registry   []NamedResolver
)

// Register adds a resolver to the process-wide registry. versionConstraint
// is a Masterminds/semver constraint string (e.g. ">=4.26, <5.2"); an empty
// string means the resolver applies to every version. Intended to be called
// from a resolver declaration's init() function, the idiomatic Go analogue
// of the static self-registration the distilled spec describes.
func Register(name string, versionConstraint string, getter func() *DynResolverFactory) {
	var constraints *semver.Constraints
	if versionConstraint != "" {
		c, err := semver.NewConstraint(versionConstraint)
		if err != nil {
			panic("resolver: invalid version constraint for " + name + ": " + err.Error())
		}
		constraints = c
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, NamedResolver{Name: name, Versions: constraints, Getter: getter})
}

// Resolvers returns every registered resolver.
func Resolvers() []NamedResolver {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]NamedResolver(nil), registry...)
}

// ResolversForVersion returns the registered resolvers whose version
// constraint (if any) is satisfied by v, letting a caller scanning many
// binary versions skip resolvers known not to apply.
func ResolversForVersion(v *semver.Version) []NamedResolver {
	all := Resolvers()
	out := make([]NamedResolver, 0, len(all))
	for _, r := range all {
		if r.Versions == nil || r.Versions.Check(v) {
			out = append(out, r)
		}
	}
	return out
}
