package main

import (
	"errors"
	"fmt"
	"io"

	"example.com/peersgate/internal/diag"
	"example.com/peersgate/internal/report"
)

type reportCommand struct {
	decodeFlags
	In           string `short:"i" long:"in" value-name:"FILE" description:"peers.dat file to decode"`
	Summary      string `long:"summary" value-name:"FILE" description:"Summary JSON written by decode"`
	Acceptance   string `long:"acceptance" value-name:"FILE" description:"Acceptance JSON to include with --summary"`
	PDF          string `long:"pdf" value-name:"FILE" description:"Output PDF" required:"true"`
	Lang         string `long:"lang" description:"Report language (en, tr)" default:"en"`
	MaxAddresses int    `long:"max-addresses" description:"Addresses listed in the PDF; -1 lists all" default:"500"`

	out io.Writer
}

func (c *reportCommand) Execute(args []string) error {
	if (c.In == "") == (c.Summary == "") {
		return &exitError{code: exitUsage, err: errors.New("exactly one of --in or --summary is required")}
	}
	if c.Acceptance != "" && c.Summary == "" {
		return &exitError{code: exitUsage, err: errors.New("--acceptance requires --summary")}
	}
	lang, err := report.ParseLanguage(c.Lang)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	var (
		summary report.Summary
		acc     diag.Acceptance
	)
	if c.In != "" {
		d, err := decodeFile(c.In, &c.decodeFlags)
		if err != nil {
			return err
		}
		if d.res == nil {
			return &exitError{code: exitStructural, err: fmt.Errorf("%s: %w", c.In, d.err)}
		}
		summary, acc = d.summary, d.acceptance()
	} else {
		summary, err = report.LoadJSON(c.Summary)
		if err != nil {
			return fmt.Errorf("load summary: %w", err)
		}
		if c.Acceptance != "" {
			acc, err = diag.LoadAcceptanceJSON(c.Acceptance)
			if err != nil {
				return fmt.Errorf("load acceptance: %w", err)
			}
		} else {
			acc = diag.MakeAcceptance(nil)
		}
	}

	opts := report.PDFOptions{Lang: lang, MaxAddresses: c.MaxAddresses}
	if err := report.SavePDF(summary, acc, c.PDF, opts); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Fprintln(c.out, "Wrote PDF:", c.PDF)
	return nil
}
