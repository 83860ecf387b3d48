package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/diag"
	"example.com/peersgate/internal/manifest"
	"example.com/peersgate/internal/report"
)

const (
	batchSummaryFile    = "summary.json"
	batchDiagnostics    = "diagnostics.jsonl"
	batchAcceptanceFile = "acceptance.json"
	batchPDFFile        = "report.pdf"
	batchManifestFile   = "manifest.json"
)

type batchCommand struct {
	decodeFlags
	In          string `short:"i" long:"in" value-name:"DIR" description:"Directory searched for *.dat files" required:"true"`
	OutDir      string `short:"o" long:"out-dir" value-name:"DIR" description:"Results directory" default:"out"`
	Concurrency int    `short:"j" long:"concurrency" description:"Files decoded in parallel; 0 selects the CPU count"`
	PDF         bool   `long:"pdf" description:"Also render a PDF report per file"`
	Lang        string `long:"lang" description:"PDF language (en, tr)" default:"en"`
	Progress    bool   `long:"progress" description:"Display progress updates"`
	Metrics     bool   `long:"metrics" description:"Print throughput metrics"`

	out io.Writer
}

// findPeersFiles returns every *.dat file below dir in lexical order.
func findPeersFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dat") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// resultDir maps an input path to its directory under outDir.
func resultDir(inDir, outDir, path string) string {
	rel, err := filepath.Rel(inDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel)))
}

type batchResult struct {
	path    string
	code    int
	outputs []string
	line    string
}

func (c *batchCommand) Execute(args []string) error {
	lang, err := report.ParseLanguage(c.Lang)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if _, err := c.decodeOptions(); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	paths, err := findPeersFiles(c.In)
	if err != nil {
		return &exitError{code: exitUsage, err: fmt.Errorf("scan %s: %w", c.In, err)}
	}
	if len(paths) == 0 {
		return &exitError{code: exitUsage, err: fmt.Errorf("no .dat files under %s", c.In)}
	}
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return err
	}

	metrics := common.NewMetrics()
	var total int64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	metrics.SetTotalBytes(total)
	metrics.Start()
	stopProgress := func() {}
	if c.Progress {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	results := make([]batchResult, len(paths))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.processFile(path, lang, metrics)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	err = g.Wait()
	stopProgress()
	metrics.Stop()
	if err != nil {
		return err
	}

	worst := exitOK
	outputs := append([]string{}, paths...)
	var passed int
	for _, res := range results {
		fmt.Fprintln(c.out, res.line)
		outputs = append(outputs, res.outputs...)
		if res.code == exitOK {
			passed++
		} else if res.code > worst {
			worst = res.code
		}
	}

	m, err := manifest.Build(c.OutDir, outputs)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	manifestPath := filepath.Join(c.OutDir, batchManifestFile)
	if err := manifest.Save(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	fmt.Fprintf(c.out, "Processed %d files: %d passed, %d failed. Manifest: %s\n",
		len(results), passed, len(results)-passed, manifestPath)

	if c.Metrics {
		snap := metrics.Snapshot()
		fmt.Fprintf(c.out, "Metrics: duration=%s files=%d failed=%d records=%d addresses=%d processed=%s throughput=%.2f MB/s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Files,
			snap.Failures,
			snap.Records,
			snap.Addresses,
			common.FormatBytes(snap.Bytes),
			snap.ThroughputBytesPerSecond()/1_000_000,
		)
	}
	if worst != exitOK {
		return &exitError{code: worst, err: errors.New("one or more files failed")}
	}
	return nil
}

// processFile decodes one input and writes its result files.  Decode
// failures are recorded in the result; only write failures are returned.
func (c *batchCommand) processFile(path string, lang report.Language, metrics *common.Metrics) (batchResult, error) {
	res := batchResult{path: path}
	d, err := decodeFile(path, &c.decodeFlags)
	if err != nil {
		metrics.AddFailure(0)
		res.code = exitUsage
		res.line = fmt.Sprintf("%s: %v", path, err)
		return res, nil
	}
	if d.res == nil {
		metrics.AddFailure(d.size)
	} else {
		metrics.AddFile(d.size, d.res.Records, d.res.TotalUnique())
	}

	dir := resultDir(c.In, c.OutDir, path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, err
	}
	acc := d.acceptance()
	write := func(name string, fn func(string) error) error {
		p := filepath.Join(dir, name)
		if err := fn(p); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.outputs = append(res.outputs, p)
		return nil
	}
	if err := write(batchDiagnostics, func(p string) error { return diag.SaveNDJSON(p, d.diags) }); err != nil {
		return res, err
	}
	if err := write(batchAcceptanceFile, func(p string) error { return diag.SaveAcceptanceJSON(acc, p) }); err != nil {
		return res, err
	}

	res.code = d.exitCode(c.AllowBadChecksum)
	if d.res == nil {
		res.line = fmt.Sprintf("%s: FAIL %v", path, d.err)
		return res, nil
	}
	if err := write(batchSummaryFile, func(p string) error { return report.SaveJSON(d.summary, p) }); err != nil {
		return res, err
	}
	if c.PDF {
		opts := report.PDFOptions{Lang: lang}
		if err := write(batchPDFFile, func(p string) error { return report.SavePDF(d.summary, acc, p, opts) }); err != nil {
			return res, err
		}
	}
	verdict := "PASS"
	if !acc.Summary.Pass {
		verdict = "FAIL"
	}
	res.line = fmt.Sprintf("%s: %s %d unique (%d ipv4, %d ipv6), checksum %s",
		path, verdict, d.summary.TotalUniquePeers, d.summary.TotalUniqueIPv4Peers,
		d.summary.TotalUniqueIPv6Peers, d.summary.Integrity)
	ctlLog.Infof("%s", res.line)
	return res, nil
}
