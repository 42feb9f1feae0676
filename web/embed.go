// Package web embeds the single-page dashboard served by the API server.
//
// The dashboard talks to the REST API for analyses and listens on the
// WebSocket endpoint for analysis_complete events.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded static/ directory.
func DistFS() fs.FS {
	sub, err := fs.Sub(dist, "static")
	if err != nil {
		panic("web: " + err.Error())
	}
	return sub
}
