package main

import (
	"fmt"

	"github.com/ShayCichocki/hive/internal/tui"
)

// runInteractive launches the persistent dashboard: commands typed into the
// input field flow through the intent path, and the status pane refreshes
// from reporter snapshots.
func runInteractive() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	program, _ := tui.NewProgram(a.reporter, a.HandleCommand)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interactive mode: %w", err)
	}
	return nil
}
