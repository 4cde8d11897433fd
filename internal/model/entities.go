package model

import "time"

// Bookmark is a named alias for an absolute directory.
type Bookmark struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Exclusion removes a path from scans.
//
// A dynamic exclusion keeps its bookmark text unexpanded so that it follows
// later bookmark redefinitions; a static exclusion is expanded once.
type Exclusion struct {
	Path    string `json:"path" yaml:"path"`
	Dynamic bool   `json:"dynamic" yaml:"dynamic"`
}

// Watch marks a path for continuous monitoring.
type Watch struct {
	Path    string    `json:"path" yaml:"path"`
	Passive bool      `json:"passive" yaml:"passive"`
	Added   time.Time `json:"added" yaml:"added"`
}

// Ward is a recurring integrity check on a path.
type Ward struct {
	Path      string        `json:"path" yaml:"path"`
	Interval  time.Duration `json:"interval" yaml:"interval"`
	Statement string        `json:"statement" yaml:"statement"`
	Due       time.Time     `json:"due" yaml:"due"`
	Created   time.Time     `json:"created" yaml:"created"`
}

// ColumnOverride is a user-defined alias or display width for a column.
type ColumnOverride struct {
	Kind  RecordKind
	Name  string
	Alias string
	Width int
}

// Output stream setting keys.
const (
	SettingStdout = "stdout"
	SettingStderr = "stderr"
)
