package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/langid"
	"github.com/dgallion1/docsift/internal/metrics"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/rank"
	"github.com/dgallion1/docsift/internal/report"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Input is one document of a batch.
type Input struct {
	Name string
	Data []byte
}

// ReadInputs loads every supported file directly under dir, sorted by name.
func ReadInputs(dir string) ([]Input, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var inputs []Input
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		inputs = append(inputs, Input{Name: e.Name(), Data: data})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	return inputs, nil
}

// DocResult is the outcome of the outline stage for one document.
type DocResult struct {
	Name     string
	Order    int
	Outline  *outline.Outline
	Sections []doctree.Section
	Err      error
	Duration time.Duration
}

// Record renders the outline artifact for the document.
func (r DocResult) Record() report.OutlineRecord {
	return report.NewOutlineRecord(r.Name, r.Outline, r.Err, ErrorKind(r.Err), errors.Is(r.Err, ErrBudgetExceeded))
}

// Processor runs the outline and ranking stages over a batch.
type Processor struct {
	Parser      parser.Options
	Outline     outline.Options
	Ranking     rank.Params
	Encoder     embed.Encoder
	Tokenizer   *textnorm.Tokenizer
	DocBudget   time.Duration
	BatchBudget time.Duration
	Workers     int
	Log         *slog.Logger

	// parse defaults to parser.Parse.
	parse func(r io.Reader, filename string, opts parser.Options) (*doctree.Document, error)
}

// NewProcessor wires a processor from configuration and collaborators.
func NewProcessor(cfg config.Config, enc embed.Encoder, tok *textnorm.Tokenizer, det langid.Detector, log *slog.Logger) *Processor {
	params := cfg.Tuning.Ranking
	params.Concurrency = cfg.ScoreConcurrency
	return &Processor{
		Parser: parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		Outline: outline.Options{
			Features:   cfg.Tuning.Features,
			Thresholds: cfg.Tuning.Classifier,
			Detector:   det,
		},
		Ranking:     params,
		Encoder:     enc,
		Tokenizer:   tok,
		DocBudget:   cfg.DocBudget,
		BatchBudget: cfg.BatchBudget,
		Workers:     cfg.WorkerCount,
		Log:         log,
	}
}

// OutlineDocument parses and outlines one document. If the work outlives
// the per-document budget it is abandoned and the result carries
// ErrBudgetExceeded.
func (p *Processor) OutlineDocument(ctx context.Context, order int, in Input) DocResult {
	start := time.Now()
	log := p.logger().With("doc", in.Name)

	if p.DocBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.DocBudget)
		defer cancel()
	}

	done := make(chan DocResult, 1)
	go func() { done <- p.outline(order, in) }()

	var res DocResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = DocResult{
			Name:  in.Name,
			Order: order,
			Err:   fmt.Errorf("%w: outline %s: %v", ErrBudgetExceeded, in.Name, ctx.Err()),
		}
	}
	res.Duration = time.Since(start)

	method := ""
	if res.Outline != nil {
		method = res.Outline.Method
	}
	if res.Err != nil {
		log.Error("outline failed", "kind", ErrorKind(res.Err), "error", res.Err)
		metrics.RecordDocument(method, ErrorKind(res.Err), res.Duration)
		return res
	}
	log.Info("outline complete",
		"method", method,
		"headings", len(res.Outline.Headings),
		"sections", len(res.Sections),
		"duration_ms", res.Duration.Milliseconds(),
	)
	metrics.RecordDocument(method, "ok", res.Duration)
	return res
}

func (p *Processor) outline(order int, in Input) DocResult {
	res := DocResult{Name: in.Name, Order: order}
	parse := p.parse
	if parse == nil {
		parse = parser.Parse
	}
	doc, err := parse(bytes.NewReader(in.Data), in.Name, p.Parser)
	if err != nil {
		res.Err = err
		return res
	}
	doc.ID = ContentHashHex(in.Data)[:16]
	doc.Name = in.Name

	res.Outline = outline.Extract(doc, p.Outline)
	res.Sections = outline.Segment(res.Outline, order, p.Outline.Detector)
	return res
}

// OutlineAll outlines inputs on a bounded worker pool. Results keep input
// order. Documents not started before ctx ends fail with ErrBudgetExceeded.
// onDone, when non-nil, is called as each document finishes.
func (p *Processor) OutlineAll(ctx context.Context, inputs []Input, onDone func(DocResult)) []DocResult {
	results := make([]DocResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(max(1, p.Workers))
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = DocResult{
					Name:  in.Name,
					Order: i,
					Err:   fmt.Errorf("%w: outline %s not started: %v", ErrBudgetExceeded, in.Name, err),
				}
				metrics.RecordDocument("", KindBudget, 0)
			} else {
				results[i] = p.OutlineDocument(ctx, i, in)
			}
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Request is one ranking batch.
type Request struct {
	Inputs  []Input
	Persona string
	Task    string
	TopK    int // overrides Params.TopK when positive

	// OnDocument is called as each document's outline finishes.
	OnDocument func(DocResult)
}

// BatchResult holds everything a ranking batch produced.
type BatchResult struct {
	Request      Request
	Docs         []DocResult
	SectionCount int
	Ranked       []rank.ScoredSection
	Omitted      []rank.Omission
	Incomplete   bool
	MinRelevance float64
	Finished     time.Time
}

// Rank outlines every input, then scores, ranks and refines the pooled
// sections. The batch budget bounds the outline stage: documents still
// running when it ends are abandoned and the batch is marked incomplete.
// Sections that did finish are always ranked. Scoring gets its own budget of
// the same length, starting once the query is embedded; sections still
// pending when it ends are omitted as budget_exceeded. The query embedding
// and sentence refinement run under ctx alone.
func (p *Processor) Rank(ctx context.Context, req Request) *BatchResult {
	start := time.Now()
	log := p.logger().With("documents", len(req.Inputs))

	params := p.Ranking
	if req.TopK > 0 {
		params.TopK = req.TopK
	}
	res := &BatchResult{Request: req, MinRelevance: params.MinRelevance}

	outlineCtx, cancel := p.withBatchBudget(ctx)
	res.Docs = p.OutlineAll(outlineCtx, req.Inputs, req.OnDocument)
	cancel()

	var sections []doctree.Section
	for _, d := range res.Docs {
		if errors.Is(d.Err, ErrBudgetExceeded) {
			res.Incomplete = true
		}
		sections = append(sections, d.Sections...)
	}
	res.SectionCount = len(sections)

	scorer := &rank.Scorer{Encoder: p.Encoder, Tokenizer: p.Tokenizer, Params: params, Log: p.Log}
	q, err := rank.BuildQuery(ctx, p.Encoder, p.Tokenizer, req.Persona, req.Task, params.PersonaWeight, params.TaskWeight)
	if err != nil {
		log.Error("query embedding failed", "error", err)
		for i := range sections {
			res.Omitted = append(res.Omitted, rank.Omission{Section: &sections[i], Err: fmt.Errorf("query: %w", err)})
		}
	} else {
		scoreCtx, cancel := p.withBatchBudget(ctx)
		var scored []rank.ScoredSection
		scored, res.Omitted = scorer.Score(scoreCtx, q, sections)
		cancel()
		res.Ranked = rank.Rank(scored, params.TopK, params.MinRelevance)
		scorer.RefineAll(ctx, q, res.Ranked)
	}

	for _, om := range res.Omitted {
		kind := ErrorKind(om.Err)
		if kind == KindBudget {
			res.Incomplete = true
		}
		log.Warn("section omitted", "doc", om.Section.DocName, "section", report.SectionTitle(om.Section), "kind", kind, "error", om.Err)
		metrics.RecordOmitted(kind)
	}

	res.Finished = time.Now()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	log.Info("ranking complete",
		"sections", res.SectionCount,
		"ranked", len(res.Ranked),
		"omitted", len(res.Omitted),
		"incomplete", res.Incomplete,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// withBatchBudget derives a context bounded by BatchBudget, if one is set.
func (p *Processor) withBatchBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.BatchBudget > 0 {
		return context.WithTimeout(ctx, p.BatchBudget)
	}
	return context.WithCancel(ctx)
}

// Failed returns the documents that produced no outline.
func (b *BatchResult) Failed() []report.Failure {
	var out []report.Failure
	for _, d := range b.Docs {
		if d.Err == nil {
			continue
		}
		out = append(out, report.Failure{Document: d.Name, Kind: ErrorKind(d.Err), Message: d.Err.Error()})
	}
	return out
}

// Record renders the ranking artifact.
func (b *BatchResult) Record() report.RankingRecord {
	names := make([]string, len(b.Request.Inputs))
	for i, in := range b.Request.Inputs {
		names[i] = in.Name
	}
	omitted := make([]report.Omitted, 0, len(b.Omitted))
	for _, om := range b.Omitted {
		omitted = append(omitted, report.Omitted{
			Document:     om.Section.DocName,
			SectionTitle: report.SectionTitle(om.Section),
			Kind:         ErrorKind(om.Err),
			Message:      om.Err.Error(),
		})
	}
	return report.NewRankingRecord(report.RankingInput{
		Documents:          names,
		Persona:            b.Request.Persona,
		Task:               b.Request.Task,
		Timestamp:          b.Finished,
		SectionCount:       b.SectionCount,
		RelevanceThreshold: b.MinRelevance,
		Incomplete:         b.Incomplete,
		Failed:             b.Failed(),
		Omitted:            omitted,
		Ranked:             b.Ranked,
	})
}

func (p *Processor) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
