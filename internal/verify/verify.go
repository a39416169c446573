// Package verify checks that a record's supporting excerpt still appears in
// its source document.
package verify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/addis-analytics/fidata/internal/fetcher"
	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
)

// maxDocumentBytes caps how much of a source document is read. Excerpts are
// short; anything past a few megabytes is noise.
const maxDocumentBytes = 4 << 20

// normalizer strips diacritics, case-folds, and applies NFKC so that excerpt
// matching survives the usual copy/paste and re-rendering differences.
var normalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	cases.Fold(),
	norm.NFKC,
)

// NormalizeText canonicalizes text for matching: unicode normalization,
// case folding, diacritic removal, and whitespace collapsing.
func NormalizeText(s string) string {
	folded, _, err := transform.String(normalizer, s)
	if err != nil {
		// Fall back to simple lowering when transformation fails on bad input.
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r)
	}), " ")
}

// ContainsExcerpt reports whether the excerpt appears in the document after
// both are normalized.
func ContainsExcerpt(document, excerpt string) bool {
	doc := NormalizeText(document)
	exc := NormalizeText(excerpt)
	if exc == "" {
		return false
	}
	return strings.Contains(doc, exc)
}

// Checker verifies record provenance against live source documents.
type Checker struct {
	store         store.Store
	fetch         fetcher.Fetcher
	maxConcurrent int
}

// NewChecker creates a Checker. maxConcurrent bounds the verification fan-out.
func NewChecker(st store.Store, f fetcher.Fetcher, maxConcurrent int) *Checker {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Checker{store: st, fetch: f, maxConcurrent: maxConcurrent}
}

// CheckRecord fetches the record's source URL and checks its excerpt.
// The outcome is appended to the store as a new verification row; the
// record itself is never touched.
func (c *Checker) CheckRecord(ctx context.Context, rec model.Record) (*model.Verification, error) {
	v := model.Verification{RecordID: rec.ID}

	body, err := c.fetch.Download(ctx, rec.SourceURL)
	if err != nil {
		v.Status = model.VerificationFetchError
		v.Detail = err.Error()
		return c.store.AppendVerification(ctx, v)
	}
	defer body.Close()

	doc, err := io.ReadAll(io.LimitReader(body, maxDocumentBytes))
	if err != nil {
		v.Status = model.VerificationFetchError
		v.Detail = err.Error()
		return c.store.AppendVerification(ctx, v)
	}

	if ContainsExcerpt(string(doc), rec.OriginalText) {
		v.Status = model.VerificationFound
		v.Detail = "excerpt matched after normalization"
	} else {
		v.Status = model.VerificationNotFound
		v.Detail = fmt.Sprintf("excerpt not found in %d bytes fetched from source", len(doc))
	}

	return c.store.AppendVerification(ctx, v)
}

// Result summarizes a verification pass.
type Result struct {
	Checked  int `json:"checked"`
	Found    int `json:"found"`
	NotFound int `json:"not_found"`
	Errors   int `json:"errors"`
}

// CheckAll verifies the given records with bounded concurrency.
// Individual fetch failures are recorded as fetch_error verifications
// rather than aborting the pass.
func (c *Checker) CheckAll(ctx context.Context, records []model.Record) (*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	results := make([]*model.Verification, len(records))
	for i, rec := range records {
		g.Go(func() error {
			v, err := c.CheckRecord(ctx, rec)
			if err != nil {
				return eris.Wrapf(err, "verify record %s", rec.ID)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Checked: len(records)}
	for _, v := range results {
		switch v.Status {
		case model.VerificationFound:
			res.Found++
		case model.VerificationNotFound:
			res.NotFound++
		case model.VerificationFetchError:
			res.Errors++
		}
	}

	zap.L().Info("verification pass complete",
		zap.Int("checked", res.Checked),
		zap.Int("found", res.Found),
		zap.Int("not_found", res.NotFound),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}
