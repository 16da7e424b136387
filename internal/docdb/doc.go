// Package docdb provides a generic, concurrent-safe, flat-file document store.
//
// # Overview
//
// A [Store] owns a base directory and a registry of kinds. Each [Kind] keeps
// every entity of one type in memory, in insertion order, and mirrors them to
// a single file named after the kind. Reads never touch the disk; every
// mutation rewrites the kind's whole file.
//
// # Entities
//
// An entity is a pointer to a struct embedding [Model]. The embedded model
// carries the integer id and the attachment to the kind that owns the entity:
//
//	type Note struct {
//		docdb.Model
//		Title string `json:"title"`
//	}
//
// Fields are mutated in place and made durable with [Model.Save], or under the
// kind's lock with [Kind.Modify].
//
// # File Format
//
// One token per line. A token is the base64 (standard alphabet) encoding of the
// entity's JSON object, so tokens never contain a line terminator whatever the
// field content. Blank lines are ignored. There is no header.
//
// # Durability
//
// Files are rewritten through a temporary file in the same directory followed
// by a rename, so an interrupted write leaves the previous content intact.
package docdb
