// Package schemas holds the JSON Schema documents shipped with the binary.
package schemas

import "embed"

// Files contains every *.schema.json document in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// NotesSchema is the filename of the meeting notes schema.
const NotesSchema = "notes.schema.json"
