package model

// ScanSummary counts the changes a scan made to the filesystem records.
type ScanSummary struct {
	Inserted  int `json:"inserted" yaml:"inserted"`
	Updated   int `json:"updated" yaml:"updated"`
	Deleted   int `json:"deleted" yaml:"deleted"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// Add accumulates another summary into s.
func (s *ScanSummary) Add(o ScanSummary) {
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Deleted += o.Deleted
	s.Unchanged += o.Unchanged
	s.Skipped += o.Skipped
}

// CheckStatus is the result of verifying one file against its stored hash.
type CheckStatus string

const (
	CheckOK        CheckStatus = "ok"
	CheckModified  CheckStatus = "modified"
	CheckMissing   CheckStatus = "missing"
	CheckUnindexed CheckStatus = "unindexed"
)

// CheckResult is the integrity verdict for one path.
type CheckResult struct {
	Path     string      `json:"path" yaml:"path"`
	Status   CheckStatus `json:"status" yaml:"status"`
	Expected string      `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   string      `json:"actual,omitempty" yaml:"actual,omitempty"`
}
