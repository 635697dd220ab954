// Package unit defines the identity of a deployable unit.
//
// A unit is identified by the name of its definition file and the source it
// came from. The mapping is pure: the same source address and filename always
// produce the same ID, which is what lets successive snapshots be diffed.
package unit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DescriptorFile is the name of the persisted descriptor inside a unit store.
// The content is JSON, which compose accepts as YAML.
const DescriptorFile = "docker-compose.yml"

// sourceIDLength is the number of hex characters kept from the address hash.
const sourceIDLength = 8

// Extensions lists the definition file extensions recognised in a source.
var Extensions = []string{".yaml", ".yml", ".json", ".jsonc", ".cue"}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ID is the globally unique identifier of a unit: <name>-<sourceID>.
type ID string

func (id ID) String() string { return string(id) }

// SourceID derives the stable identifier of a source from its address.
func SourceID(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])[:sourceIDLength]
}

// NewID builds the unit ID for a unit name within a source.
func NewID(name, sourceID string) (ID, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if sourceID == "" {
		return "", fmt.Errorf("unit %q: empty source id", name)
	}
	return ID(name + "-" + sourceID), nil
}

// ValidateName checks that a unit name can be used as a compose project name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid unit name %q: must match %s", name, namePattern.String())
	}
	return nil
}

// NameFromFile returns the unit name for a definition filename and whether
// the file is a unit definition at all.
func NameFromFile(filename string) (string, bool) {
	base := filepath.Base(filename)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	ext := filepath.Ext(base)
	for _, known := range Extensions {
		if ext == known {
			return strings.TrimSuffix(base, ext), true
		}
	}
	return "", false
}

// DescriptorPath returns the descriptor file path of a unit store inside a
// snapshot directory.
func DescriptorPath(snapshotDir string, id ID) string {
	return filepath.Join(snapshotDir, string(id), DescriptorFile)
}

// Set is a set of unit IDs.
type Set map[ID]struct{}

// NewSet builds a set from the given IDs.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Difference returns the IDs in s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the IDs in lexical order.
func (s Set) Sorted() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}
