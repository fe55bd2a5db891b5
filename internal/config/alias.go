package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnesscodex/s4/internal/errs"
)

// DefaultRegion is used when an alias is saved without an explicit region.
const DefaultRegion = "us-east-1"

const aliasFileName = "aliases.tsv"

// Alias holds the connection settings for one named endpoint.
type Alias struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	PathStyle bool   `json:"path_style"`
}

// AliasStore reads and writes the alias file: one alias per line, six
// tab-separated fields (name, endpoint, access key, secret key, region,
// path-style as 0/1). Blank lines and lines starting with # are skipped.
type AliasStore struct {
	path    string
	aliases map[string]Alias
}

// DefaultDir returns the default config directory, ~/.s4.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".s4"), nil
}

// OpenAliasStore loads the alias file under dir, falling back to the
// default directory when dir is empty. A missing file yields an empty
// store, not an error.
func OpenAliasStore(dir string) (*AliasStore, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	s := &AliasStore{
		path:    filepath.Join(dir, aliasFileName),
		aliases: make(map[string]Alias),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *AliasStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read alias file %s: %w", s.path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			return errs.Configf("alias file %s: invalid entry at line %d", s.path, i+1)
		}
		s.aliases[fields[0]] = Alias{
			Endpoint:  fields[1],
			AccessKey: fields[2],
			SecretKey: fields[3],
			Region:    fields[4],
			PathStyle: fields[5] == "1",
		}
	}

	return nil
}

// Save writes all aliases back to disk, creating the config directory on
// first use. The file holds credentials, so it is not group-readable.
func (s *AliasStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	var b strings.Builder
	for _, name := range s.Names() {
		a := s.aliases[name]
		pathStyle := "0"
		if a.PathStyle {
			pathStyle = "1"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\n",
			name, a.Endpoint, a.AccessKey, a.SecretKey, a.Region, pathStyle)
	}

	if err := os.WriteFile(s.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("could not write alias file %s: %w", s.path, err)
	}

	return nil
}

// Get returns the alias with the given name.
func (s *AliasStore) Get(name string) (Alias, bool) {
	a, ok := s.aliases[name]
	return a, ok
}

// Set adds or replaces an alias. Callers persist with Save.
func (s *AliasStore) Set(name string, a Alias) {
	if a.Region == "" {
		a.Region = DefaultRegion
	}
	s.aliases[name] = a
}

// Remove deletes an alias and reports whether it existed.
func (s *AliasStore) Remove(name string) bool {
	_, ok := s.aliases[name]
	delete(s.aliases, name)
	return ok
}

// Names returns all alias names in sorted order.
func (s *AliasStore) Names() []string {
	names := make([]string, 0, len(s.aliases))
	for name := range s.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

