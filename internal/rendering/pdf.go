package rendering

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/schemas"
	"github.com/jonathan/meeting-reporter/internal/types"
	rootschemas "github.com/jonathan/meeting-reporter/schemas"
)

// Renderer writes a report for one transcript and its notes.
type Renderer interface {
	Export(transcript string, notes types.Notes, outputPath string) error
}

// section is one bulleted notes list in the report.
type section struct {
	key      string
	heading  string
	optional bool
}

// sections is the fixed order of notes lists in the report.
var sections = []section{
	{key: types.NotesKeyTopicsDiscussed, heading: "Topics Discussed"},
	{key: types.NotesKeyDecisionsMade, heading: "Decisions Made"},
	{key: types.NotesKeyActionItems, heading: "Action Items"},
	{key: types.NotesKeyKeyPoints, heading: "Key Points / Areas of Focus", optional: true},
}

const (
	emptySection      = "None."
	transcriptHeading = "Transcript"
	fontFamily        = "Helvetica"
	lineHeight        = 6.0
	margin            = 20.0
)

// PDFRenderer renders A4 reports with the PDF core fonts.
type PDFRenderer struct {
	// Compress toggles stream compression. Tests disable it to inspect output.
	Compress bool
	// Now stamps the document creation date; defaults to time.Now.
	Now func() time.Time
}

// NewPDFRenderer returns a renderer with compression enabled.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Compress: true}
}

// ReportPath returns the deterministic report location for a job.
func ReportPath(dir string, jobID uuid.UUID) string {
	return filepath.Join(dir, fmt.Sprintf("report_%s.pdf", jobID))
}

// DownloadFilename is the attachment name offered to clients for a job's report.
func DownloadFilename(jobID uuid.UUID) string {
	return fmt.Sprintf("meeting_summary_%s.pdf", jobID)
}

// Export validates notes, renders the PDF to a temporary file next to
// outputPath and renames it into place. outputPath only ever holds a
// complete document.
func (r *PDFRenderer) Export(transcript string, notes types.Notes, outputPath string) error {
	if err := schemas.ValidateDocument(rootschemas.NotesSchema, map[string]any(notes)); err != nil {
		return &RenderError{Message: "notes are missing required fields", Cause: err}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &RenderError{Message: "failed to create report directory", Cause: err}
	}

	pdf := r.build(transcript, notes)
	if pdf.Err() {
		return &RenderError{Message: "failed to lay out report", Cause: pdf.Error()}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".tmp-*")
	if err != nil {
		return &RenderError{Message: "failed to create temporary file", Cause: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := pdf.Output(tmp); err != nil {
		_ = tmp.Close()
		return &RenderError{Message: "failed to write PDF", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &RenderError{Message: "failed to flush PDF", Cause: err}
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return &RenderError{Message: "failed to move PDF into place", Cause: err}
	}
	committed = true
	return nil
}

func (r *PDFRenderer) build(transcript string, notes types.Notes) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	pdf.SetCreationDate(now())

	// Core fonts are cp1252; runes outside it are substituted by the translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(SanitizeText(s)) }

	title := notes.Title()
	if title == "" {
		title = "Meeting Summary"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("meeting-reporter", true)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 9, text(title), "", "L", false)
	pdf.Ln(4)

	for _, s := range sections {
		if s.optional && !notes.Has(s.key) {
			continue
		}
		heading(pdf, text(s.heading))

		items := notes.List(s.key)
		pdf.SetFont(fontFamily, "", 11)
		if len(items) == 0 {
			pdf.MultiCell(0, lineHeight, emptySection, "", "L", false)
		}
		for _, item := range items {
			pdf.SetX(margin + 2)
			pdf.CellFormat(5, lineHeight, tr("•"), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, lineHeight, text(item), "", "L", false)
		}
		pdf.Ln(3)
	}

	heading(pdf, transcriptHeading)
	pdf.SetFont(fontFamily, "", 10)
	for _, line := range TranscriptParagraphs(transcript) {
		pdf.MultiCell(0, 5, text(line), "", "L", false)
		pdf.Ln(1.5)
	}

	return pdf
}

func heading(pdf *fpdf.Fpdf, label string) {
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, 8, label, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}
