package types

// ScanConfig holds settings for the corpus scanner.
type ScanConfig struct {
	// ReviewsDir is the root of the review document tree.
	ReviewsDir string `json:"reviews_dir" yaml:"reviews_dir"`

	// Suffix is the required filename suffix (default ".rm5").
	Suffix string `json:"suffix" yaml:"suffix"`

	// Marker is a substring the full path must contain (default "publication").
	// An empty marker keeps every file with the suffix.
	Marker string `json:"marker" yaml:"marker"`
}

// BatchConfig holds settings for the parallel extraction stage.
type BatchConfig struct {
	// Workers is the size of the worker pool (default 8).
	Workers int `json:"workers" yaml:"workers"`

	// FailFast aborts the whole batch on the first failing document instead
	// of recording the failure and continuing.
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`
}

// ReportFormat selects the encoding of the discrepancy report.
type ReportFormat string

const (
	ReportJSON ReportFormat = "json"
	ReportYAML ReportFormat = "yaml"
)

// OutputConfig holds the output file locations. Relative file names are
// resolved against Dir.
type OutputConfig struct {
	Dir            string       `json:"dir" yaml:"dir"`
	RobsFile       string       `json:"robs_file" yaml:"robs_file"`
	ReferencesFile string       `json:"references_file" yaml:"references_file"`
	GroupsFile     string       `json:"groups_file" yaml:"groups_file"`
	ReportFile     string       `json:"report_file" yaml:"report_file"`
	ReportFormat   ReportFormat `json:"report_format" yaml:"report_format"`

	// Workbook, when set, also writes all tables into one XLSX file.
	Workbook string `json:"workbook,omitempty" yaml:"workbook,omitempty"`
}

// StoreConfig holds settings for the SQLite record index.
type StoreConfig struct {
	// DBPath is the SQLite database file (default "index/rob.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Scan   ScanConfig   `json:"scan" yaml:"scan"`
	Batch  BatchConfig  `json:"batch" yaml:"batch"`
	Output OutputConfig `json:"output" yaml:"output"`
	Store  StoreConfig  `json:"store" yaml:"store"`
}

// DefaultPipelineConfig returns the configuration matching the historical
// single-script layout: eight workers, ".rm5" files under "publication"
// paths, and outputs in the working directory.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Scan: ScanConfig{
			ReviewsDir: "reviews",
			Suffix:     ".rm5",
			Marker:     "publication",
		},
		Batch: BatchConfig{
			Workers: 8,
		},
		Output: OutputConfig{
			Dir:            ".",
			RobsFile:       "robs.csv",
			ReferencesFile: "references.csv",
			GroupsFile:     "rob_groups.csv",
			ReportFile:     "studies_with_multiple_reviews.json",
			ReportFormat:   ReportJSON,
		},
		Store: StoreConfig{
			DBPath: "index/rob.db",
		},
	}
}
