// Package schemas provides the embedded constituency tree JSON schema.
package schemas

import "embed"

// SchemaFile is the name of the tree schema inside [TreeSchemaFS].
const SchemaFile = "tree-schema.json"

// TreeSchemaFS contains the embedded tree JSON schema.
//
//go:embed tree-schema.json
var TreeSchemaFS embed.FS
