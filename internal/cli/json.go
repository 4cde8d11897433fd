package cli

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// Global structured output flags
var (
	jsonOutput bool
	yamlOutput bool
)

// Response is the standard envelope for structured CLI output.
type Response struct {
	OK    bool       `json:"ok" yaml:"ok"`
	Data  any        `json:"data,omitempty" yaml:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty" yaml:"error,omitempty"`
	Meta  *Meta      `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code" yaml:"code"`
	Message    string `json:"message" yaml:"message"`
	Details    any    `json:"details,omitempty" yaml:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count       int   `json:"count,omitempty" yaml:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty" yaml:"query_time_ms,omitempty"`
}

// outputFormat returns table, json or yaml.
func outputFormat() string {
	switch {
	case jsonOutput:
		return "json"
	case yamlOutput:
		return "yaml"
	}
	return getConfig().Output.Format
}

// isStructuredOutput returns true if JSON or YAML output is enabled.
func isStructuredOutput() bool {
	return outputFormat() != "table"
}

// writeResponse encodes resp in the current structured format.
func writeResponse(w io.Writer, resp Response) error {
	if outputFormat() == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// outputSuccess outputs a successful structured response.
func outputSuccess(data any, meta *Meta) {
	_ = writeResponse(rootCmd.OutOrStdout(), Response{OK: true, Data: data, Meta: meta})
}

// outputError outputs an error structured response.
func outputError(code, message string, details any, suggestion string) {
	_ = writeResponse(rootCmd.OutOrStdout(), Response{
		OK: false,
		Error: &ErrorInfo{
			Code:       code,
			Message:    message,
			Details:    details,
			Suggestion: suggestion,
		},
	})
}

// handleError handles an error appropriately based on output mode.
// In structured mode, outputs an error envelope. In text mode, returns the
// error for Execute to print.
func handleError(code string, err error, suggestion string) error {
	if isStructuredOutput() {
		outputError(code, err.Error(), nil, suggestion)
		return errReported
	}
	if suggestion != "" {
		return &hintedError{err: err, hint: suggestion}
	}
	return err
}

// hintedError carries a suggestion printed under the error message.
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() + "\n  " + e.hint }

func (e *hintedError) Unwrap() error { return e.err }
