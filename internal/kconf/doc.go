// Package kconf reads, merges and writes KDE KConfig files.
//
// KConfig files are INI-like: nested groups are written as "[a][b]" headers,
// keys as "key=value" lines, and keys may carry markings such as "[$i]"
// (immutable) or "[$e]" (shell expansion). Keys, values and group names use a
// backslash escaping grammar implemented by Escape and Unescape.
//
// A Manager merges a declarative batch of settings into one file:
//
//	m := kconf.NewManager(path, kconf.Policy{Reset: true})
//	if err := m.Validate(groups); err != nil {
//	    return err // kconf.ValidationErrors
//	}
//	if err := m.Read(); err != nil {
//	    return err
//	}
//	if err := m.Run(); err != nil {
//	    return err
//	}
//	outcome, err := m.Save()
//
// The steps must run in that order; each Manager is used for exactly one
// invocation. Keys declared persistent keep whatever value they had on disk.
// With Policy.Reset enabled, every other key found on disk is dropped unless
// it is declared again.
//
// This package imports nothing internal.
package kconf
