// Package main hosts the iconsort CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration (file, .env, flags), builds
// the logger, and hands work to the internal packages: pipeline runs, watch
// mode, metadata inspection, cache maintenance, and preflight checks.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag here.
package main
