// json_output.go - JSON output support for scripting.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/continuum/internal/diff"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write encodes the response to w with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// StderrPrint prints a message to stderr (for human-readable output in JSON mode).
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// TreeNodeData is one node in tree output.
type TreeNodeData struct {
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	Mes       string `json:"mes"`
	FullText  string `json:"full_text"`
	CreatedAt int64  `json:"created_at"`
	Children  int    `json:"children"`
	Active    bool   `json:"active"`
	Current   bool   `json:"current"`
}

// TreeData is the result of the tree command.
type TreeData struct {
	ChatID       string         `json:"chat_id"`
	MessageIndex int            `json:"message_index"`
	RootIndex    int            `json:"root_index"`
	ActivePath   string         `json:"active_path"`
	Nodes        []TreeNodeData `json:"nodes"`
}

// MessageData is one message in show output.
type MessageData struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Text       string `json:"text"`
	SwipeID    int    `json:"swipe_id"`
	Swipes     int    `json:"swipes"`
	ActivePath string `json:"active_path,omitempty"`
	Revisions  int    `json:"revisions"`
}

// ShowData is the result of the show command.
type ShowData struct {
	ChatID    string        `json:"chat_id"`
	Character string        `json:"character"`
	Messages  []MessageData `json:"messages"`
}

// OperationData is the result of a tree-changing command.
type OperationData struct {
	ChatID       string         `json:"chat_id"`
	MessageIndex int            `json:"message_index"`
	Changed      bool           `json:"changed"`
	ActivePath   string         `json:"active_path"`
	Text         string         `json:"text"`
	Mutations    []MutationData `json:"mutations"`
}

// MutationData describes one tree change.
type MutationData struct {
	MessageIndex int    `json:"message_index"`
	Op           string `json:"op"`
	Kind         string `json:"kind"`
	Path         string `json:"path"`
}

// JournalEntryData is one journal row.
type JournalEntryData struct {
	ID           string `json:"id"`
	ChatID       string `json:"chat_id"`
	MessageIndex int    `json:"message_index"`
	Op           string `json:"op"`
	Kind         string `json:"kind"`
	Path         string `json:"path"`
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at"`
}

// DiffData is the result of the diff command.
type DiffData struct {
	ChatID       string     `json:"chat_id"`
	MessageIndex int        `json:"message_index"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	Unit         string     `json:"unit"`
	Identical    bool       `json:"identical"`
	SharedPrefix int        `json:"shared_prefix"`
	Stats        diff.Stats `json:"stats"`
	Summary      string     `json:"summary"`
	Inline       string     `json:"inline"`
	Unified      string     `json:"unified,omitempty"`
}

// ExportData is the result of the export command.
type ExportData struct {
	ChatID   string `json:"chat_id"`
	Format   string `json:"format"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}
