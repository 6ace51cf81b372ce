package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/ingestbench/config"
)

func benchConfig() *config.Config {
	return &config.Config{
		BaseCommand:    "tiledbvcf",
		Iterations:     1,
		IngestionFiles: []string{"/data/a.vcf", "/data/b.vcf"},
	}
}

func TestWrapCommand(t *testing.T) {
	tests := []struct {
		name string
		base string
		want CommandConfig
	}{
		{"binary only", "tiledbvcf", CommandConfig{Binary: "tiledbvcf", ExtraArgs: []string{}}},
		{
			"prefix",
			"docker run --rm tiledbvcf",
			CommandConfig{Binary: "docker", ExtraArgs: []string{"run", "--rm", "tiledbvcf"}},
		},
		{"blank", "   ", CommandConfig{}},
		{
			"quoted path with space",
			`"/opt/my tools/tiledbvcf"`,
			CommandConfig{Binary: "/opt/my tools/tiledbvcf", ExtraArgs: []string{}},
		},
		{
			"single quoted prefix argument",
			`docker run -v '/data/vcf files:/in' tiledbvcf`,
			CommandConfig{Binary: "docker", ExtraArgs: []string{"run", "-v", "/data/vcf files:/in", "tiledbvcf"}},
		},
		{
			"escaped space",
			`/opt/my\ tools/tiledbvcf --verbose`,
			CommandConfig{Binary: "/opt/my tools/tiledbvcf", ExtraArgs: []string{"--verbose"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WrapCommand(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrapCommandUnterminatedQuote(t *testing.T) {
	_, err := WrapCommand(`"/opt/my tools/tiledbvcf`)
	assert.Error(t, err)
}

func TestBuildArgsQuotedBinary(t *testing.T) {
	cfg := benchConfig()
	cfg.BaseCommand = `'/opt/my tools/tiledbvcf'`

	got, err := BuildArgs(cfg, config.Suite{Name: "s", ArrayURI: "/a"}, config.Test{Name: "stat"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/my tools/tiledbvcf", "-a", "/a"}, got)
}

func TestBuildArgsBadBaseCommand(t *testing.T) {
	cfg := benchConfig()
	cfg.BaseCommand = `tiledbvcf "store`

	_, err := BuildArgs(cfg, config.Suite{Name: "s", ArrayURI: "/a"}, config.Test{Name: "stat"})
	assert.Error(t, err)
}

func TestBuildArgsStore(t *testing.T) {
	suite := config.Suite{Name: "s", ArrayURI: "/out/array", GroupURI: "/out"}
	test := config.Test{Name: config.TestStore, Args: []string{"store", "-t", "4"}}

	got, err := BuildArgs(benchConfig(), suite, test)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"tiledbvcf", "store", "-t", "4",
		"-a", "/out/array",
		"-f", "/data/a.vcf", "/data/b.vcf",
	}, got)
}

func TestBuildArgsRegister(t *testing.T) {
	suite := config.Suite{Name: "s", ArrayURI: "/out/array"}
	test := config.Test{Name: config.TestRegister, Args: []string{"register"}}

	got, err := BuildArgs(benchConfig(), suite, test)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"tiledbvcf", "register", "-a", "/out/array",
		"-f", "/data/a.vcf", "/data/b.vcf",
	}, got)
}

func TestBuildArgsOtherTestOmitsFiles(t *testing.T) {
	suite := config.Suite{Name: "s", ArrayURI: "/out/array"}
	test := config.Test{Name: "stat", Args: []string{"stat"}}

	got, err := BuildArgs(benchConfig(), suite, test)
	require.NoError(t, err)

	assert.Equal(t, []string{"tiledbvcf", "stat", "-a", "/out/array"}, got)
}

func TestBuildArgsExportLeavesDestinationOff(t *testing.T) {
	suite := config.Suite{Name: "s", ArrayURI: "/out/array", GroupURI: "/out"}
	test := config.Test{Name: config.TestExport, Args: []string{"export"}}

	got, err := BuildArgs(benchConfig(), suite, test)
	require.NoError(t, err)

	assert.Equal(t, []string{"tiledbvcf", "export", "-a", "/out/array"}, got)
}

func TestBuildArgsExportWithFlag(t *testing.T) {
	suite := config.Suite{Name: "s", ArrayURI: "/out/array", GroupURI: "/out"}
	test := config.Test{Name: config.TestExport, Args: []string{"export"}, ExportFlag: "-p"}

	got, err := BuildArgs(benchConfig(), suite, test)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"tiledbvcf", "export", "-a", "/out/array", "-p", "/out/export/",
	}, got)
}

func TestBuildArgsBasePrefix(t *testing.T) {
	cfg := benchConfig()
	cfg.BaseCommand = "sudo -u bench tiledbvcf"

	suite := config.Suite{Name: "s", ArrayURI: "/a"}
	got, err := BuildArgs(cfg, suite, config.Test{Name: "stat"})
	require.NoError(t, err)

	assert.Equal(t, []string{"sudo", "-u", "bench", "tiledbvcf", "-a", "/a"}, got)
}

func TestExportDir(t *testing.T) {
	assert.Equal(t, "/out/export", ExportDir(config.Suite{ArrayURI: "/out/a", GroupURI: "/out"}))
	assert.Equal(t, "/out/a/export", ExportDir(config.Suite{ArrayURI: "/out/a"}))
}

func TestFormatCommand(t *testing.T) {
	got := FormatCommand([]string{"tiledbvcf", "store", "-a", "/tmp/my array", ""})
	assert.Equal(t, `tiledbvcf store -a "/tmp/my array" ""`, got)
}
