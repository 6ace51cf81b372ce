// Package workload generates deterministic synthetic VCF files to feed
// ingestion benchmarks. Each file holds one sample column and a fixed
// number of variant records.
package workload

import (
	"bufio"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strings"
)

var bases = []byte("ACGT")

// Summary contains statistics about the generated files.
type Summary struct {
	Files   []string
	Records int
	Bytes   int64
}

// Config controls generation parameters.
type Config struct {
	NumSamples int
	NumRecords int
	Contig     string
	Seed       int64
}

// Generator produces deterministic VCFs from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	if cfg.Contig == "" {
		cfg.Contig = "1"
	}

	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate writes one VCF per sample into dir and returns a Summary.
func (g *Generator) Generate(dir string) (Summary, error) {
	var summary Summary

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return summary, fmt.Errorf("create workload dir: %w", err)
	}

	for i := 0; i < g.cfg.NumSamples; i++ {
		sample := fmt.Sprintf("S%04d", i+1)
		path := filepath.Join(dir, sample+".vcf")

		n, err := g.writeFile(path, sample)
		if err != nil {
			return summary, err
		}

		summary.Files = append(summary.Files, path)
		summary.Records += g.cfg.NumRecords
		summary.Bytes += n
	}

	return summary, nil
}

func (g *Generator) writeFile(path, sample string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := &countingWriter{w: f}
	bw := bufio.NewWriter(cw)

	if err := g.WriteVCF(bw, sample); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}

	return cw.n, nil
}

// WriteVCF writes the header and NumRecords sorted records for sample.
func (g *Generator) WriteVCF(w io.Writer, sample string) error {
	header := []string{
		"##fileformat=VCFv4.2",
		"##source=ingestbench",
		fmt.Sprintf("##contig=<ID=%s>", g.cfg.Contig),
		`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
		`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read depth">`,
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t" + sample,
	}

	if _, err := io.WriteString(w, strings.Join(header, "\n")+"\n"); err != nil {
		return err
	}

	pos := 0
	for i := 0; i < g.cfg.NumRecords; i++ {
		// Positions are strictly increasing so the files are sorted.
		pos += 1 + g.rng.Intn(1000)

		refIdx := g.rng.Intn(len(bases))
		altIdx := (refIdx + 1 + g.rng.Intn(len(bases)-1)) % len(bases)
		ref, alt := bases[refIdx], bases[altIdx]

		if _, err := fmt.Fprintf(w, "%s\t%d\t.\t%c\t%c\t%d\tPASS\t.\tGT:DP\t%s:%d\n",
			g.cfg.Contig, pos, ref, alt, 20+g.rng.Intn(40),
			g.genotype(), 5+g.rng.Intn(60),
		); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) genotype() string {
	switch g.rng.Intn(3) {
	case 0:
		return "0/1"
	case 1:
		return "1/1"
	default:
		return "0/0"
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
