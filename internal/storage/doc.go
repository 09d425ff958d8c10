// Package storage maps (folder, file name) pairs onto files under the configured
// StoragePath. The render path reads source images through Open; the ingestion
// path persists normalized uploads through Put, which writes to a temp file and
// renames it into place so readers never observe a partially written image.
// Callers are expected to run safepath checks first; the store re-checks that
// every resolved path stays under the root.
package storage
