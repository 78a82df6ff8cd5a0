package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2011, 12, 11, 0, 0, 0, 0, time.UTC), cfg.ReferenceDate)
		assert.Equal(t, "Year 2010-2011", cfg.Source.Sheet)
		assert.Equal(t, "online_retail", cfg.Source.Table)
		assert.Equal(t, []string{"loyal_customers"}, cfg.Export.Segments)
		assert.Equal(t, ".", cfg.Export.Output)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "stderr", cfg.Log.Output)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, int64(64<<20), cfg.Server.MaxBodySize)
	})

	t.Run("loads values from environment variables with RFM prefix", func(t *testing.T) {
		t.Setenv("RFM_REFERENCE_DATE", "2012-01-01")
		t.Setenv("RFM_SOURCE_DSN", "postgres://u:p@localhost/retail")
		t.Setenv("RFM_EXPORT_SEGMENTS", "champions,loyal_customers")
		t.Setenv("RFM_EXPORT_OUTPUT", "s3://bucket/rfm")
		t.Setenv("RFM_LOG_LEVEL", "debug")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), cfg.ReferenceDate)
		assert.Equal(t, KindPostgres, cfg.Source.ResolvedKind())
		assert.Equal(t, []string{"champions", "loyal_customers"}, cfg.Export.Segments)
		assert.Equal(t, "s3://bucket/rfm", cfg.Export.Output)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("loads values from a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rfm.toml")
		content := `
reference_date = "2011-12-10"

[source]
path = "online_retail_II.xlsx"
sheet = "Year 2009-2010"

[export]
segments = ["hibernating", "at_risk"]
output = "out"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 10, cfg.ReferenceDate.Day())
		assert.Equal(t, KindXLSX, cfg.Source.ResolvedKind())
		assert.Equal(t, "Year 2009-2010", cfg.Source.Sheet)
		assert.Equal(t, []string{"hibernating", "at_risk"}, cfg.Export.Segments)
		assert.Equal(t, "out", cfg.Export.Output)
	})

	t.Run("missing config file is an error when path is explicit", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})

	t.Run("rejects invalid reference date", func(t *testing.T) {
		t.Setenv("RFM_REFERENCE_DATE", "11/12/2011")

		_, err := Load("")
		assert.ErrorContains(t, err, "reference_date")
	})

	t.Run("rejects unknown segment", func(t *testing.T) {
		t.Setenv("RFM_EXPORT_SEGMENTS", "at_Risk")

		_, err := Load("")
		assert.ErrorContains(t, err, "unknown segment")
	})

	t.Run("rejects unknown source kind", func(t *testing.T) {
		t.Setenv("RFM_SOURCE_KIND", "parquet")

		_, err := Load("")
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		t.Setenv("RFM_LOG_LEVEL", "verbose")

		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestSourceConfig_ResolvedKind(t *testing.T) {
	tests := []struct {
		name string
		src  SourceConfig
		want string
	}{
		{"explicit kind wins", SourceConfig{Kind: KindMySQL, Path: "a.csv"}, KindMySQL},
		{"postgres dsn", SourceConfig{DSN: "postgresql://localhost/retail"}, KindPostgres},
		{"mariadb dsn", SourceConfig{DSN: "mariadb://u:p@localhost/retail"}, KindMySQL},
		{"xlsx path", SourceConfig{Path: "data/online_retail_II.XLSX"}, KindXLSX},
		{"csv path", SourceConfig{Path: "data/online_retail.csv"}, KindCSV},
		{"no extension", SourceConfig{Path: "-"}, KindCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.src.ResolvedKind())
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList([]string{"a, b", "", "c"}))
	assert.Nil(t, SplitList(nil))
}
