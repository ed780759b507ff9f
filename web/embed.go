// Package web holds the browser client served at the site root.
package web

import "embed"

//go:embed index.html app.js style.css
var Files embed.FS
