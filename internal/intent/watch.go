package intent

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the parser's rule table whenever the rules file changes.
// It blocks until the context is cancelled, so callers run it in a goroutine.
// Reload failures keep the previous table and are reported through logf.
func Watch(ctx context.Context, path string, parser *Parser, logf func(format string, args ...interface{})) error {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			rules, err := LoadRulesFile(path)
			if err != nil {
				logf("[intent] rules reload failed, keeping previous table: %v", err)
				continue
			}
			parser.SetRules(rules)
			logf("[intent] reloaded %d rules from %s", len(rules), path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("[intent] rules watcher error: %v", err)
		}
	}
}
