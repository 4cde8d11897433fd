// Package docs bundles the HDSL language reference into the hdsl binary.
package docs

import "embed"

// FS contains the reference topics and their index.
//
//go:embed index.yaml reference
var FS embed.FS

// IndexPath is the location of the topic index within FS.
const IndexPath = "index.yaml"
