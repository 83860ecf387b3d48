package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/peersgate/internal/diag"
)

const defaultMaxPDFAddresses = 500

// PDFOptions controls PDF rendering.
type PDFOptions struct {
	Lang Language

	// MaxAddresses caps the address table; zero selects a default and a
	// negative value lists every address.
	MaxAddresses int
}

type pdfDoc struct {
	*gofpdf.Fpdf
	tr  Translator
	enc func(string) string
}

func (d *pdfDoc) text(s string) string {
	return d.enc(s)
}

// SavePDF renders a summary and its acceptance findings into a PDF document.
// A QR code of the file digest is embedded when the summary carries one.
func SavePDF(s Summary, acc diag.Acceptance, out string, opts PDFOptions) error {
	tr := NewTranslator(opts.Lang)
	pdf := gofpdf.New("P", "mm", "A4", "")
	doc := &pdfDoc{Fpdf: pdf, tr: tr, enc: pdf.UnicodeTranslatorFromDescriptor("")}

	title := doc.text(tr.T("pdf.title"))
	pdf.SetTitle(title, false)
	pdf.SetAuthor("peersctl", false)
	pdf.SetCreator("peersctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(doc, title)
	if err := addDigestSection(doc, s.SHA256); err != nil {
		return err
	}
	addSummarySection(doc, s, acc)
	addHeaderSection(doc, s)
	addAddressSection(doc, s, opts.MaxAddresses)
	addFindingsSection(doc, acc.Findings)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(doc *pdfDoc, title string) {
	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, title)
	doc.Ln(12)
}

func addSectionTitle(doc *pdfDoc, key string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, doc.text(doc.tr.T(key)))
	doc.Ln(9)
}

func addDigestSection(doc *pdfDoc, digest string) error {
	if digest == "" {
		return nil
	}
	png, err := DigestToQR(digest, 0)
	if err != nil {
		return fmt.Errorf("digest qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("digest", opts, bytes.NewReader(png))

	x, y := doc.GetX(), doc.GetY()
	doc.ImageOptions("digest", x, y, 30, 30, false, opts, 0, "")
	doc.SetXY(x+34, y+8)
	doc.SetFont("Helvetica", "B", 10)
	doc.Cell(0, 5, doc.text(doc.tr.T("pdf.digest")))
	doc.SetXY(x+34, y+14)
	doc.SetFont("Courier", "", 8)
	doc.Cell(0, 5, digest)
	doc.SetXY(x, y+34)
	return nil
}

func addSummarySection(doc *pdfDoc, s Summary, acc diag.Acceptance) {
	addSectionTitle(doc, "pdf.summary")
	items := []kvRow{
		{key: "summary.file", value: emptyFallback(s.File, "-")},
		{key: "summary.records", value: strconv.FormatUint(s.Records, 10)},
		{key: "summary.integrity", value: integrityLabel(doc.tr, s.Integrity)},
		{key: "summary.totalUnique", value: strconv.Itoa(s.TotalUniquePeers)},
		{key: "summary.totalIPv4", value: strconv.Itoa(s.TotalUniqueIPv4Peers)},
		{key: "summary.totalIPv6", value: strconv.Itoa(s.TotalUniqueIPv6Peers)},
		{key: "summary.routable", value: strconv.Itoa(s.Routable)},
		{key: "summary.duplicates", value: strconv.Itoa(s.Duplicates)},
		{key: "summary.skipped", value: strconv.Itoa(s.Skipped)},
		{key: "pdf.overall", value: passLabel(doc.tr, acc.Summary.Pass)},
	}
	addKeyValueRows(doc, items)
}

func addHeaderSection(doc *pdfDoc, s Summary) {
	addSectionTitle(doc, "pdf.header")
	h := s.Header
	items := []kvRow{
		{key: "summary.magic", value: fmt.Sprintf("%s (%s)", h.Magic, emptyFallback(h.Network, "-"))},
		{key: "summary.version", value: strconv.Itoa(int(h.Version))},
		{key: "summary.keySize", value: strconv.Itoa(int(h.KeySize))},
		{key: "summary.newCount", value: strconv.FormatUint(uint64(h.NewCount), 10)},
		{key: "summary.triedCount", value: strconv.FormatUint(uint64(h.TriedCount), 10)},
		{key: "summary.buckets", value: strconv.FormatUint(uint64(h.NewBucketCount), 10)},
	}
	addKeyValueRows(doc, items)
}

type kvRow struct {
	key   string
	value string
}

func addKeyValueRows(doc *pdfDoc, items []kvRow) {
	doc.SetFont("Helvetica", "", 11)
	for _, item := range items {
		doc.CellFormat(55, 6, doc.text(doc.tr.T(item.key)), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, doc.text(item.value), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)
}

func addAddressSection(doc *pdfDoc, s Summary, limit int) {
	addSectionTitle(doc, "pdf.addresses")
	total := len(s.UniqueIPv4Addresses) + len(s.UniqueIPv6Addresses)
	if total == 0 {
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, doc.text(doc.tr.T("pdf.noAddresses")), "", "L", false)
		doc.Ln(4)
		return
	}
	if limit == 0 {
		limit = defaultMaxPDFAddresses
	}

	widths := []float64{25, 155}
	doc.SetFillColor(240, 240, 240)
	doc.SetFont("Helvetica", "B", 10)
	for i, h := range []string{doc.tr.T("pdf.family"), doc.tr.T("pdf.address")} {
		doc.CellFormat(widths[i], 7, doc.text(h), "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	written := 0
	for _, group := range []struct {
		family string
		addrs  []string
	}{
		{"IPv4", s.UniqueIPv4Addresses},
		{"IPv6", s.UniqueIPv6Addresses},
	} {
		for _, addr := range group.addrs {
			if limit > 0 && written >= limit {
				break
			}
			renderTableRow(doc.Fpdf, widths, []string{group.family, addr}, 5)
			written++
		}
	}
	if written < total {
		doc.SetFont("Helvetica", "I", 9)
		doc.MultiCell(0, 5, doc.text(doc.tr.Format("pdf.truncated", total-written)), "", "L", false)
	}
	doc.Ln(4)
}

func addFindingsSection(doc *pdfDoc, findings []diag.Diagnostic) {
	addSectionTitle(doc, "pdf.findings")

	if len(findings) == 0 {
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, doc.text(doc.tr.T("pdf.noFindings")), "", "L", false)
		return
	}

	for i, d := range findings {
		doc.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, d.RuleId, severityLabel(d.Severity))
		doc.MultiCell(0, 5, header, "", "L", false)

		if msg := strings.TrimSpace(d.Message); msg != "" {
			doc.SetFont("Helvetica", "", 10)
			doc.MultiCell(0, 5, doc.text(msg), "", "L", false)
		}

		if meta := findingMetadata(d); meta != "" {
			doc.SetFont("Helvetica", "", 9)
			doc.MultiCell(0, 4, doc.text(meta), "", "L", false)
		}
		doc.Ln(2)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func passLabel(tr Translator, pass bool) string {
	if pass {
		return tr.T("pdf.pass")
	}
	return tr.T("pdf.fail")
}

func severityLabel(sev diag.Severity) string {
	if s := strings.TrimSpace(string(sev)); s != "" {
		return s
	}
	return "UNKNOWN"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func findingMetadata(d diag.Diagnostic) string {
	parts := make([]string, 0, 4)
	if !d.Ts.IsZero() {
		parts = append(parts, d.Ts.Format(time.RFC3339))
	}
	if d.File != "" {
		parts = append(parts, d.File)
	}
	if d.RecordIndex != nil {
		parts = append(parts, fmt.Sprintf("Record %d", *d.RecordIndex))
	}
	if d.Offset != "" {
		parts = append(parts, "Offset "+d.Offset)
	}
	return strings.Join(parts, " · ")
}
