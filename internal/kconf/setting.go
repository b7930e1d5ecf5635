package kconf

import (
	"fmt"
	"sort"
)

// Descriptor is a declarative entry for one key as it arrives from the
// declarative source. A nil Immutable means "use the global default"; a nil
// ShellExpand means false.
type Descriptor struct {
	Value       any   `mapstructure:"value" json:"value"`
	Immutable   *bool `mapstructure:"immutable" json:"immutable,omitempty"`
	ShellExpand *bool `mapstructure:"shellExpand" json:"shellExpand,omitempty"`
	Persistent  bool  `mapstructure:"persistent" json:"persistent,omitempty"`
}

// Setting is a validated declarative entry. It is one of Remove,
// KeepPersistent or Set.
type Setting interface {
	setting()
}

// Remove deletes the key from the file.
type Remove struct{}

// KeepPersistent leaves whatever value the key has on disk.
type KeepPersistent struct{}

// Set writes Value (unescaped) with the given markings.
type Set struct {
	Value       string
	Immutable   bool
	ShellExpand bool
}

func (Remove) setting()         {}
func (KeepPersistent) setting() {}
func (Set) setting()            {}

// Policy holds the per-file settings that affect validation and merging.
type Policy struct {
	// Reset drops keys found on disk unless they are declared persistent.
	Reset bool
	// ImmutableByDefault is the immutability a descriptor gets when it
	// does not specify one.
	ImmutableByDefault bool
}

// Entry is one validated (group, key) declaration.
type Entry struct {
	Group   GroupPath
	Key     string
	Setting Setting
}

// Validate converts the descriptors declared for file into Entries, sorted
// by group and key. It reports every rule violation rather than stopping at
// the first one.
func Validate(file string, groups map[string]map[string]Descriptor, policy Policy) ([]Entry, error) {
	var entries []Entry
	var errs ValidationErrors

	for groupName, keys := range groups {
		group := ParsePath(groupName)
		for key, d := range keys {
			fail := func(code, format string, args ...any) {
				errs = append(errs, ValidationError{
					File:    file,
					Group:   groupName,
					Key:     key,
					Code:    code,
					Message: fmt.Sprintf(format, args...),
				})
			}

			setting, ok := toSetting(d, policy, fail)
			if ok {
				entries = append(entries, Entry{Group: group, Key: key, Setting: setting})
			}
		}
	}

	if len(errs) > 0 {
		sortValidationErrors(errs)
		return nil, errs
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := Compare(entries[i].Group, entries[j].Group); c != 0 {
			return c < 0
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

func toSetting(d Descriptor, policy Policy, fail func(code, format string, args ...any)) (Setting, bool) {
	if d.Persistent {
		ok := true
		if d.Value != nil {
			fail(ErrPersistentValue, "persistent keys must not set a value")
			ok = false
		}
		if d.Immutable != nil && *d.Immutable != policy.ImmutableByDefault {
			fail(ErrPersistentImmutable, "persistent keys must keep the default immutability (%t)", policy.ImmutableByDefault)
			ok = false
		}
		if d.ShellExpand != nil && *d.ShellExpand {
			fail(ErrPersistentShellExpand, "persistent keys must not enable shell expansion")
			ok = false
		}
		if !policy.Reset {
			fail(ErrPersistentNoReset, "persistent keys require the file to be reset-owned")
			ok = false
		}
		return KeepPersistent{}, ok
	}

	if d.Value == nil {
		return Remove{}, true
	}

	value, err := FormatValue(d.Value)
	if err != nil {
		fail(ErrUnsupportedValue, "%v", err)
		return nil, false
	}

	immutable := policy.ImmutableByDefault
	if d.Immutable != nil {
		immutable = *d.Immutable
	}
	return Set{
		Value:       value,
		Immutable:   immutable,
		ShellExpand: d.ShellExpand != nil && *d.ShellExpand,
	}, true
}

func sortValidationErrors(errs ValidationErrors) {
	sort.Slice(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Code < b.Code
	})
}
