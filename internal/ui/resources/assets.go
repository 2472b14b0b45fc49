// Package resources serves the UI's static assets and builds the client
// bundle. Dev builds read from the filesystem so edits show up on reload;
// release builds serve the embedded copies.
package resources

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"
