package voices

// Aliases maps external voice names (e.g. OpenAI preset names) to catalog
// identifiers. Lookup policy is pluggable; the default is a static table
// from config with fall-through to direct identifier lookup in the caller.
type Aliases interface {
	Lookup(name string) (string, bool)
}

type StaticAliases map[string]string

func (a StaticAliases) Lookup(name string) (string, bool) {
	id, ok := a[name]

	return id, ok
}

// ResolveAlias applies the alias table first and falls back to the name
// itself as a direct catalog identifier.
func ResolveAlias(aliases Aliases, name string) string {
	if aliases != nil {
		if id, ok := aliases.Lookup(name); ok {
			return id
		}
	}

	return name
}
