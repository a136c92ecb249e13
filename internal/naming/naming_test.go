package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArtifactKey(t *testing.T) {
	key := ArtifactKey("prod_br", "bleacherreport_production", "2020-01-01T00-00-00")
	assert.Equal(t, "prod_br.bleacherreport_production/bleacherreport_production.2020-01-01T00-00-00.sql.gz", key)
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2020, 6, 15, 13, 45, 9, 0, time.UTC))
	assert.Equal(t, "2020-06-15T13-45-09", ts)
	assert.NotContains(t, ts, ":")
}

func TestLocalFilenameRoundTrip(t *testing.T) {
	tests := []struct {
		environment string
		database    string
		timestamp   string
	}{
		{"prod_br", "bleacherreport_production", "2020-01-01T00-00-00"},
		{"staging", "foo", "1999-12-31T23-59-59"},
		{"prod_us", "app_db", "2026-02-28T06-30-00"},
	}

	for _, tt := range tests {
		key := ArtifactKey(tt.environment, tt.database, tt.timestamp)
		local := LocalFilename(key)
		assert.Equal(t, tt.database+"."+tt.timestamp+".sql.gz", local)
	}
}

func TestLocalFilenameNoSlash(t *testing.T) {
	assert.Equal(t, "foo.sql.gz", LocalFilename("foo.sql.gz"))
}

func TestStagingNameFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{
			name:     "production suffix rewritten",
			filename: "bleacherreport_production.2020-01-01T00-00-00.sql.gz",
			expected: "bleacherreport_staging",
		},
		{
			name:     "no production suffix unchanged",
			filename: "foo.2020-01-01T00-00-00.sql.gz",
			expected: "foo",
		},
		{
			name:     "production in the middle is not a suffix",
			filename: "production_data.2020-01-01T00-00-00.sql.gz",
			expected: "production_data",
		},
		{
			name:     "bare name without timestamp",
			filename: "app_production",
			expected: "app_staging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StagingNameFromFilename(tt.filename))
		})
	}
}
