package identity

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/healthmap/pkg/errors"
)

// directory is the default in-memory Directory implementation. Lookups
// are exact-key over normalized indexes; alias inserts are the only
// mutation after load.
type directory struct {
	mu       sync.RWMutex
	byKey    map[string]*Identity
	byEmail  map[string]*Identity // email and UPN, lowercased
	byName   map[string]*Identity // normalized display name and "given family"
	aliases  map[string]*Alias
	aliasIDs map[string]*Identity
}

// NewDirectory creates a directory over the given identities.
func NewDirectory(identities ...*Identity) Directory {
	d := &directory{
		byKey:    make(map[string]*Identity),
		byEmail:  make(map[string]*Identity),
		byName:   make(map[string]*Identity),
		aliases:  make(map[string]*Alias),
		aliasIDs: make(map[string]*Identity),
	}
	for _, id := range identities {
		d.index(id)
	}
	return d
}

// directoryFile is the YAML shape of a people file.
type directoryFile struct {
	People  []*Identity `yaml:"people"`
	Aliases []Alias     `yaml:"aliases,omitempty"`
}

// LoadDirectoryFile reads a YAML people file into a directory.
func LoadDirectoryFile(path string) (Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	dir := NewDirectory(file.People...)
	for _, alias := range file.Aliases {
		if err := dir.AddAlias(alias); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// index adds one identity to the lookup maps.
func (d *directory) index(id *Identity) {
	if id == nil || id.Key == "" {
		return
	}
	d.byKey[id.Key] = id
	if email := strings.ToLower(strings.TrimSpace(id.Email)); email != "" {
		d.byEmail[email] = id
	}
	if upn := strings.ToLower(strings.TrimSpace(id.UPN)); upn != "" {
		d.byEmail[upn] = id
	}
	if name := CleanToken(id.DisplayName); name != "" {
		d.byName[name] = id
	}
	given := Normalize(id.GivenName)
	family := Normalize(id.FamilyName)
	if given != "" && family != "" {
		d.byName[given+" "+family] = id
	}
}

// ByEmail looks up an identity by email or principal name.
func (d *directory) ByEmail(email string) (*Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return id, ok
}

// ByKey looks up an identity by its stable directory key.
func (d *directory) ByKey(key string) (*Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byKey[key]
	return id, ok
}

// ByName looks up an identity by normalized name.
func (d *directory) ByName(normalized string) (*Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[normalized]
	return id, ok
}

// Alias looks up a learned alias by normalized value.
func (d *directory) Alias(normalized string) (*Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.aliasIDs[normalized]
	return id, ok
}

// AddAlias records a learned alias. Adding a value that is already
// known is a no-op; an alias for an unknown identity is rejected.
func (d *directory) AddAlias(alias Alias) error {
	if alias.Value == "" {
		return errors.NewValidationError("value", alias.Value, "alias value is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byKey[alias.IdentityKey]
	if !ok {
		return errors.NewNotFoundError("identity", alias.IdentityKey)
	}
	if _, exists := d.aliases[alias.Value]; exists {
		return nil
	}
	stored := alias
	d.aliases[alias.Value] = &stored
	d.aliasIDs[alias.Value] = id
	return nil
}

// Enumerate returns all identities sorted by key for deterministic scans.
func (d *directory) Enumerate() []*Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Identity, 0, len(d.byKey))
	for _, id := range d.byKey {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
