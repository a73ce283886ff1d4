// Package documents renders the PDRM report set for a case: the police
// report (Polis Repot), the rough sketch (Rajah Kasar) and the decision
// letter (Keputusan).
package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// Kind identifies one of the three documents.
type Kind string

const (
	KindPolisRepot Kind = "polis_repot"
	KindRajahKasar Kind = "rajah_kasar"
	KindKeputusan  Kind = "keputusan"
)

// AllKinds lists every document in the order they are produced.
var AllKinds = []Kind{KindPolisRepot, KindRajahKasar, KindKeputusan}

// ParseKind validates a document kind from a URL or flag.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid report type: %q (must be 'polis_repot', 'rajah_kasar', or 'keputusan')", s)
}

// Filename returns the download name of the document for a report number,
// e.g. PolisRepot_DRAFT_ABCDEF12_2025.pdf.
func (k Kind) Filename(reportNo string) string {
	prefix := map[Kind]string{
		KindPolisRepot: "PolisRepot",
		KindRajahKasar: "RajahKasar",
		KindKeputusan:  "Keputusan",
	}[k]
	return fmt.Sprintf("%s_%s.pdf", prefix, strings.ReplaceAll(reportNo, "/", "_"))
}

// Image is an embedded picture such as the driver's rough sketch.
type Image struct {
	Data []byte
	Type string // "PNG" or "JPG"
}

// Document is everything needed to render the report set.
type Document struct {
	Details *ledger.PoliceDetails

	// Display names printed on the signature lines of the police report.
	// Empty leaves the line blank.
	ComplainantSignedBy string
	ReceiverSignedBy    string

	// Sketch is drawn inside the Rajah Kasar box when present.
	Sketch *Image
}

// Renderer turns a Document into PDFs.
type Renderer struct {
	compress bool
	clock    func() time.Time
}

// NewRenderer creates a Renderer that dates letters with the current time.
func NewRenderer() *Renderer {
	return &Renderer{compress: true, clock: time.Now}
}

// Render writes one document as PDF to w.
func (r *Renderer) Render(w io.Writer, kind Kind, doc *Document) error {
	if doc == nil || doc.Details == nil {
		return fmt.Errorf("document has no police details")
	}

	p := r.newPage()
	switch kind {
	case KindPolisRepot:
		p.polisRepot(doc)
	case KindRajahKasar:
		p.rajahKasar(doc)
	case KindKeputusan:
		p.keputusan(doc, r.clock().In(ledger.CaseLocation))
	default:
		return fmt.Errorf("invalid report type: %q", kind)
	}

	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render %s: %w", kind, err)
	}
	return nil
}

// WriteAll renders every document into dir concurrently and returns the
// file names keyed by kind. dir is created if needed.
func (r *Renderer) WriteAll(ctx context.Context, dir string, doc *Document) (map[Kind]string, error) {
	if doc == nil || doc.Details == nil {
		return nil, fmt.Errorf("document has no police details")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make(map[Kind]string, len(AllKinds))
	for _, kind := range AllKinds {
		names[kind] = kind.Filename(doc.Details.ReportNo)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range AllKinds {
		path := filepath.Join(dir, names[kind])
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.writeFile(path, kind, doc)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return names, nil
}

func (r *Renderer) writeFile(path string, kind Kind, doc *Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to write %s: %w", filepath.Base(path), closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return r.Render(f, kind, doc)
}
