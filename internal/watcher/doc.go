// Package watcher reports changes to class source files under a root.
//
// fsnotify events are filtered to accepted extensions outside excluded
// directories, then debounced so bursts from editors and version control
// arrive as one batch.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Extensions: []string{"hpp", "cpp"}})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, root) }()
//
//	for batch := range w.Events() {
//	    changed, deleted := watcher.Split(batch)
//	    ...
//	}
package watcher
