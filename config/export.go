package config

import (
	"strings"
	"time"
)

// ExportFormat is a supported summary file format.
type ExportFormat string

const (
	// ExportCSV renders the run summary as comma-separated values.
	ExportCSV ExportFormat = "csv"
	// ExportXLSX renders the run summary as an Excel workbook.
	ExportXLSX ExportFormat = "xlsx"
)

// ExportConfig controls how per-record retry/failure summaries are stored.
// When S3Bucket is set the summary is uploaded to S3-compatible storage and a
// presigned URL is returned; otherwise files are written under Dir.
type ExportConfig struct {
	Formats     []ExportFormat `env:"FORMATS"       envDefault:"csv"`
	Dir         string         `env:"DIR"           envDefault:"./exports"`
	S3Endpoint  string         `env:"S3_ENDPOINT"`
	S3Bucket    string         `env:"S3_BUCKET"`
	S3AccessKey string         `env:"S3_ACCESS_KEY"`
	S3SecretKey string         `env:"S3_SECRET_KEY"`
	S3Region    string         `env:"S3_REGION"     envDefault:"us-east-1"`
	S3UseSSL    bool           `env:"S3_USE_SSL"    envDefault:"true"`
	PresignTTL  time.Duration  `env:"PRESIGN_TTL"   envDefault:"24h"`
}

// Sanitize drops unknown formats and clamps the presign window.
func (c *ExportConfig) Sanitize() {
	formats := make([]ExportFormat, 0, len(c.Formats))
	seen := make(map[ExportFormat]bool, len(c.Formats))
	for _, f := range c.Formats {
		f = ExportFormat(strings.ToLower(strings.TrimSpace(string(f))))
		if (f == ExportCSV || f == ExportXLSX) && !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		formats = []ExportFormat{ExportCSV}
	}
	c.Formats = formats

	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
	if c.PresignTTL <= 0 {
		c.PresignTTL = 24 * time.Hour
	}
	// S3 presigned URLs cannot outlive seven days.
	if c.PresignTTL > 7*24*time.Hour {
		c.PresignTTL = 7 * 24 * time.Hour
	}
	if c.Dir = strings.TrimSpace(c.Dir); c.Dir == "" {
		c.Dir = "./exports"
	}
}

// UseS3 reports whether exports go to object storage.
func (c *ExportConfig) UseS3() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}
