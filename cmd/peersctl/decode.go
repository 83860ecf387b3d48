package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/diag"
	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/report"
	"example.com/peersgate/internal/server"
)

const defaultMaxInput = 256 << 20

// decodeFlags are shared by every command that decodes a file.
type decodeFlags struct {
	AllowBadChecksum bool     `long:"allow-bad-checksum" description:"Treat a checksum mismatch as a warning"`
	Networks         []string `long:"network" value-name:"NAME=HEX" description:"Accept an extra network magic; may be repeated"`
	AnyMagic         bool     `long:"any-magic" description:"Accept any network magic"`
	MaxSize          int64    `long:"max-size" description:"Refuse inputs larger than this many bytes" default:"268435456"`
}

func (f *decodeFlags) decodeOptions() ([]peersdat.Option, error) {
	if f.AnyMagic {
		return []peersdat.Option{peersdat.WithAnyMagic()}, nil
	}
	if len(f.Networks) == 0 {
		return nil, nil
	}
	extra := make(map[string]string, len(f.Networks))
	for _, v := range f.Networks {
		name, hex, err := server.ParseNetworkFlag(v)
		if err != nil {
			return nil, err
		}
		extra[name] = hex
	}
	set, err := server.ParseNetworks(extra, false)
	if err != nil {
		return nil, err
	}
	return []peersdat.Option{peersdat.WithMagics(set)}, nil
}

// decodedFile is the outcome of decoding one input.
type decodedFile struct {
	path    string
	digest  string
	size    int64
	res     *peersdat.Result
	err     error
	diags   []diag.Diagnostic
	summary report.Summary
}

func (d *decodedFile) acceptance() diag.Acceptance {
	return diag.MakeAcceptance(d.diags)
}

// exitCode maps the decode outcome to a process exit code.
func (d *decodedFile) exitCode(allowBadChecksum bool) int {
	switch {
	case d.res == nil:
		return exitStructural
	case !d.res.Valid() && !allowBadChecksum:
		return exitChecksum
	}
	return exitOK
}

// decodeFile reads and decodes path.  The returned error is only set for
// read failures; decode failures are reported in decodedFile.err.
func decodeFile(path string, f *decodeFlags) (*decodedFile, error) {
	opts, err := f.decodeOptions()
	if err != nil {
		return nil, &exitError{code: exitUsage, err: err}
	}
	limit := f.MaxSize
	if limit == 0 {
		limit = defaultMaxInput
	}
	data, err := common.ReadInput(path, limit)
	if err != nil {
		return nil, &exitError{code: exitUsage, err: err}
	}
	out := &decodedFile{
		path:   path,
		digest: common.Sha256Hex(data),
		size:   int64(len(data)),
	}
	out.res, out.err = peersdat.Decode(data, opts...)
	out.diags = diag.FromResult(path, out.res, out.err, diag.Options{AllowBadChecksum: f.AllowBadChecksum})
	if out.res != nil {
		out.summary = report.NewSummary(path, out.digest, out.res)
	}
	ctlLog.Debugf("Decoded %s (%d bytes, sha256 %s): %v", path, out.size, out.digest, out.err)
	return out, nil
}

type decodeCommand struct {
	decodeFlags
	In          string `short:"i" long:"in" value-name:"FILE" description:"peers.dat file to decode" required:"true"`
	Format      string `short:"f" long:"format" description:"Output format" choice:"json" choice:"text" default:"json"`
	Out         string `short:"o" long:"out" value-name:"FILE" description:"Write output to FILE instead of stdout"`
	List        bool   `short:"l" long:"list" description:"List every address in text output"`
	Diagnostics string `long:"diagnostics" value-name:"FILE" description:"Write diagnostics as NDJSON to FILE"`

	out io.Writer
}

func (c *decodeCommand) Execute(args []string) error {
	d, err := decodeFile(c.In, &c.decodeFlags)
	if err != nil {
		return err
	}
	if c.Diagnostics != "" {
		if err := diag.SaveNDJSON(c.Diagnostics, d.diags); err != nil {
			return fmt.Errorf("write diagnostics: %w", err)
		}
	}
	if d.res == nil {
		return &exitError{code: exitStructural, err: fmt.Errorf("%s: %w", c.In, d.err)}
	}

	w := c.out
	var file *os.File
	if c.Out != "" {
		file, err = os.Create(c.Out)
		if err != nil {
			return err
		}
		w = file
	}
	switch c.Format {
	case "text":
		tr := report.NewTranslator(report.LangEnglish)
		err = report.WriteText(w, d.summary, tr, c.List)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(d.summary)
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if code := d.exitCode(c.AllowBadChecksum); code != exitOK {
		return &exitError{code: code, err: fmt.Errorf("%s: %w", c.In, d.err)}
	}
	if d.err != nil && errors.Is(d.err, peersdat.ErrChecksumMismatch) {
		ctlLog.Warnf("%s: %v (allowed)", c.In, d.err)
	}
	return nil
}
