// Package apply synchronizes a declarative document into KConfig files.
//
// Apply runs in three phases:
//
//  1. Plan: one kconf.Manager per declared file, all validated up front.
//     Any ValidationError aborts the batch before a file is touched.
//  2. Reset: files owned by the reset patterns that the document no longer
//     declares are deleted.
//  3. Merge: every declared file is read, merged and saved, in path order.
//
// A Recorder, when set, is told about every deletion and write so runs can
// be journaled.
package apply
