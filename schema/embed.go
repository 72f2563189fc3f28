// Package schema provides the embedded JSON schema for calcheck suite files.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS

// SuiteSchema is the file name of the suite schema within FS.
const SuiteSchema = "suite.schema.json"
