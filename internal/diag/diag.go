package diag

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"example.com/peersgate/internal/peersdat"
)

type Severity string

const (
	ERROR Severity = "ERROR"
	WARN  Severity = "WARN"
	INFO  Severity = "INFO"
)

// Rule identifiers attached to diagnostics.
const (
	RuleTooShort     = "PD-STRUCT-HEADER"
	RuleMagic        = "PD-STRUCT-MAGIC"
	RuleTruncated    = "PD-STRUCT-RECORDS"
	RuleBadBuffer    = "PD-STRUCT-TRAILER"
	RuleChecksum     = "PD-CHECKSUM"
	RuleVersion      = "PD-VERSION"
	RuleSkipped      = "PD-SKIPPED"
	RuleDuplicates   = "PD-DUPLICATES"
	RuleDecodeFailed = "PD-DECODE"
)

type Diagnostic struct {
	Ts          time.Time `json:"ts"`
	File        string    `json:"file"`
	RuleId      string    `json:"ruleId"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	RecordIndex *uint64   `json:"recordIndex,omitempty"`
	Offset      string    `json:"offset,omitempty"`
}

type Acceptance struct {
	Summary struct {
		Total    int  `json:"total"`
		Errors   int  `json:"errors"`
		Warnings int  `json:"warnings"`
		Pass     bool `json:"pass"`
	} `json:"summary"`
	Findings []Diagnostic `json:"findings,omitempty"`
}

// Options adjusts how a decode outcome maps to diagnostics.
type Options struct {
	// AllowBadChecksum reports a checksum mismatch as a warning instead of
	// an error.
	AllowBadChecksum bool

	// Now stamps diagnostics; defaults to time.Now.
	Now func() time.Time
}

// FromResult converts the outcome of peersdat.Decode into diagnostics.  res
// may be nil when err is a structural failure.
func FromResult(file string, res *peersdat.Result, err error, opts Options) []Diagnostic {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC()
	mk := func(rule string, sev Severity, msg string) Diagnostic {
		return Diagnostic{Ts: ts, File: file, RuleId: rule, Severity: sev, Message: msg}
	}

	var diags []Diagnostic
	if err != nil && !errors.Is(err, peersdat.ErrChecksumMismatch) {
		return append(diags, mk(structuralRule(err), ERROR, err.Error()))
	}
	if res == nil {
		return diags
	}

	if res.Integrity != peersdat.IntegrityValid {
		sev := ERROR
		if opts.AllowBadChecksum {
			sev = WARN
		}
		msg := "checksum trailer does not match payload"
		if err != nil {
			msg = err.Error()
		}
		diags = append(diags, mk(RuleChecksum, sev, msg))
	}
	for _, w := range res.Warnings {
		diags = append(diags, mk(RuleVersion, WARN, w))
	}
	for _, rec := range res.SkippedRecords {
		idx := rec.Index
		d := mk(RuleSkipped, WARN, fmt.Sprintf("record %d has an unparseable address field", rec.Index))
		d.RecordIndex = &idx
		d.Offset = fmt.Sprintf("0x%X", rec.Offset)
		diags = append(diags, d)
	}
	if extra := res.Skipped - len(res.SkippedRecords); extra > 0 {
		diags = append(diags, mk(RuleSkipped, WARN, fmt.Sprintf("%d further records skipped", extra)))
	}
	if res.Duplicates > 0 {
		diags = append(diags, mk(RuleDuplicates, INFO,
			fmt.Sprintf("%d records repeat an address already seen", res.Duplicates)))
	}
	return diags
}

func structuralRule(err error) string {
	switch {
	case errors.Is(err, peersdat.ErrTooShort):
		return RuleTooShort
	case errors.Is(err, peersdat.ErrUnrecognizedMagic):
		return RuleMagic
	case errors.Is(err, peersdat.ErrTruncatedRecord):
		return RuleTruncated
	case errors.Is(err, peersdat.ErrBadBuffer):
		return RuleBadBuffer
	}
	return RuleDecodeFailed
}

// WriteNDJSON writes one diagnostic per line.
func WriteNDJSON(w io.Writer, diags []Diagnostic) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func SaveNDJSON(path string, diags []Diagnostic) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNDJSON(f, diags); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func MakeAcceptance(diags []Diagnostic) Acceptance {
	var rep Acceptance
	var errs, warns int
	for _, d := range diags {
		switch d.Severity {
		case ERROR:
			errs++
		case WARN:
			warns++
		}
	}
	rep.Summary.Total = len(diags)
	rep.Summary.Errors = errs
	rep.Summary.Warnings = warns
	rep.Summary.Pass = errs == 0
	rep.Findings = diags
	return rep
}

func SaveAcceptanceJSON(rep Acceptance, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadAcceptanceJSON(path string) (Acceptance, error) {
	var rep Acceptance
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
