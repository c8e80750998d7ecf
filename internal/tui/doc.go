// Package tui implements the interactive terminal dashboard: a text input
// that submits free-text commands through the intent path, a live status
// pane fed by reporter snapshots, and the conversation history of the
// session.
package tui
