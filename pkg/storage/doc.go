// Package storage decides where images land on disk and writes them there.
//
// The save directory is a pure function of the search URL (see DirName), so
// repeated crawls of the same search share one directory and files already
// present are skipped.
//
// Writes are atomic: the body is streamed into a temporary file beside the
// destination, synced, and renamed into place.
//
// Usage:
//
//	manager, err := storage.NewManager(".", searchURL, storage.DefaultBufferSize)
//	if err != nil {
//	    return err
//	}
//
//	dest, err := manager.PathFor(imageURL)
//	if err != nil {
//	    return err
//	}
//	if !manager.Exists(dest) {
//	    n, err := manager.Save(body, dest)
//	}
package storage
