// Package orchestrator runs the search pipeline: prompt, cache, generation
// and image lookup in parallel, parsing, and hand-off to a render sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"aipedia/internal/core"
	"aipedia/internal/cost"
	"aipedia/internal/llm"
	"aipedia/internal/logger"
	"aipedia/internal/parser"
	"aipedia/internal/prompt"
	"aipedia/internal/ratelimit"
	"aipedia/internal/services"
	"aipedia/internal/visual"
)

// Progress labels, in emission order.
const (
	StepGeneratingPrompt = "Generating prompt"
	StepPromptGenerated  = "Prompt generated"
	StepCacheHit         = "Article retrieved from cache"
	StepWaiting          = "Waiting for response"
	StepFetchingImage    = "Fetching image for topic (in parallel)"
	StepResponseReceived = "Response received"
	StepParsing          = "Parsing article content"
	StepParsed           = "Article content parsed"
	StepImageFetched     = "Image fetched (in parallel)"
	StepImageSkipped     = "Image fetch skipped"
	StepRendering        = "Rendering article"
	StepRendered         = "Article rendered"
	StepTotal            = "Total loading time"
)

// Defaults
const (
	DefaultTimeout    = 120 * time.Second
	DefaultMaxHistory = 10
	LocalLimiterKey   = "local"
)

// Dependencies are the collaborators of the pipeline. History and Limiter may be nil.
type Dependencies struct {
	Completer llm.Completer
	Images    services.ImageResolver
	Cache     services.ArticleCache
	History   services.HistoryStore
	Limiter   ratelimit.Limiter
	Sink      services.RenderSink
}

// Settings tune generation.
type Settings struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
	MaxHistory   int
}

// Orchestrator runs searches. Each search is a session; starting a new one
// supersedes the previous, whose results are then discarded unseen.
type Orchestrator struct {
	deps     Dependencies
	settings Settings
	state    *State

	epoch  atomic.Uint64
	mu     sync.Mutex // guards cancel
	cancel context.CancelFunc

	sinkMu sync.Mutex // serializes sink output with the currency check
	now    func() time.Time
}

// New creates an orchestrator. prefs seed the session state.
func New(deps Dependencies, settings Settings, prefs core.Preferences) *Orchestrator {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.MaxHistory <= 0 {
		settings.MaxHistory = DefaultMaxHistory
	}
	if settings.Model == "" {
		settings.Model = llm.DefaultChatModel
	}
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = llm.DefaultSystemPrompt
	}
	o := &Orchestrator{
		deps:     deps,
		settings: settings,
		state:    newState(prefs),
		now:      time.Now,
	}
	if deps.Cache != nil {
		deps.Cache.SetEnabled(prefs.CachingEnabled)
	}
	return o
}

// State exposes the session state.
func (o *Orchestrator) State() *State {
	return o.state
}

// CurrentArticle returns the article on display, if any.
func (o *Orchestrator) CurrentArticle() (core.Article, bool) {
	return o.state.Article()
}

// Preferences returns the user toggles in effect.
func (o *Orchestrator) Preferences() core.Preferences {
	return o.state.Preferences()
}

// SetPreferences replaces the user toggles. Cache changes apply to the next lookup.
func (o *Orchestrator) SetPreferences(p core.Preferences) {
	o.state.SetPreferences(p)
	if o.deps.Cache != nil {
		o.deps.Cache.SetEnabled(p.CachingEnabled)
	}
}

// Search starts a fresh search typed by the user. Blank topics are ignored
// and return core.ErrEmptyTopic without touching the network or the sink.
func (o *Orchestrator) Search(ctx context.Context, topic, language string, style core.WritingStyle) error {
	req, err := core.NewSearchRequest(topic, language, style)
	if err != nil {
		return err
	}

	if o.deps.Limiter != nil {
		decision, err := o.deps.Limiter.Allow(ctx, LocalLimiterKey)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing search", "error", err)
		} else if err := decision.Err(); err != nil {
			o.sinkError(err)
			return err
		}
	}

	return o.Execute(ctx, req)
}

// Activate follows a wiki link from the current article, scoping the new
// article to the one it was opened from.
func (o *Orchestrator) Activate(ctx context.Context, link core.WikiLink) error {
	current, ok := o.state.Article()
	language, style := o.state.Defaults()
	if !ok {
		return o.Search(ctx, link.DisplayText, language, style)
	}
	req, err := link.Request(current, language, style)
	if err != nil {
		return err
	}
	return o.Execute(ctx, req)
}

// Cancel abandons the session in flight, if any.
func (o *Orchestrator) Cancel() {
	o.epoch.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) isCurrent(id uint64) bool {
	return o.epoch.Load() == id
}

// begin allocates a session id and cancels the previous session.
func (o *Orchestrator) begin(parent context.Context) (uint64, context.Context, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	id := o.epoch.Add(1)
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel

	return id, ctx, func() {
		cancel()
		o.mu.Lock()
		if o.isCurrent(id) {
			o.cancel = nil
		}
		o.mu.Unlock()
	}
}

// emit runs fn only while session id is current. Holding sinkMu across the
// check and the call keeps a superseded session from slipping output in.
func (o *Orchestrator) emit(id uint64, fn func(services.RenderSink)) bool {
	o.sinkMu.Lock()
	defer o.sinkMu.Unlock()
	if !o.isCurrent(id) {
		return false
	}
	if o.deps.Sink != nil {
		fn(o.deps.Sink)
	}
	return true
}

func (o *Orchestrator) progress(id uint64, label string, elapsed time.Duration, timed bool) bool {
	return o.emit(id, func(s services.RenderSink) {
		s.ShowProgress(core.ProgressStep{Label: label, Elapsed: elapsed, Timed: timed})
	})
}

func (o *Orchestrator) sinkError(err error) {
	o.sinkMu.Lock()
	defer o.sinkMu.Unlock()
	if o.deps.Sink != nil {
		o.deps.Sink.RenderError(core.UserMessage(err))
	}
}

type completion struct {
	raw string
	err error
}

// Execute runs one session for req. It returns core.ErrSuperseded when a newer
// session replaced it; in that case nothing was rendered or cached.
func (o *Orchestrator) Execute(ctx context.Context, req core.SearchRequest) error {
	if req.Topic == "" {
		return core.ErrEmptyTopic
	}

	id, sessCtx, done := o.begin(ctx)
	defer done()

	start := o.now()
	elapsed := func() time.Duration { return o.now().Sub(start) }
	log := logger.Get().With("session", id, "topic", req.Topic)

	o.recordHistory(req)

	if !o.progress(id, StepGeneratingPrompt, 0, false) {
		return core.ErrSuperseded
	}
	articlePrompt := prompt.Build(req)
	o.progress(id, StepPromptGenerated, elapsed(), true)

	if cached, ok := o.lookupCache(req); ok {
		cached.Metrics.FromCache = true
		cached.Metrics.GenerationSeconds = 0
		if !o.progress(id, StepCacheHit, elapsed(), true) {
			return core.ErrSuperseded
		}
		log.Debug("Serving article from cache")
		return o.finish(id, req, cached, start, false)
	}

	genCtx, cancelGen := context.WithTimeout(sessCtx, o.settings.Timeout)
	defer cancelGen()

	chatReq := llm.NewChatRequest(articlePrompt, llm.TextGenerationOptions{
		SystemPrompt: o.settings.SystemPrompt,
		Model:        o.settings.Model,
		Temperature:  o.settings.Temperature,
		MaxTokens:    o.settings.MaxTokens,
	})
	prefs := o.state.Preferences()
	imageOpts := visual.Options{AISuggestion: prefs.ImageSuggestion, Strategy: prefs.SuggestionStrategy}

	o.progress(id, StepWaiting, elapsed(), false)
	o.progress(id, StepFetchingImage, elapsed(), false)

	// Both tasks report on buffered channels so an abandoned task can still
	// finish without blocking. Neither is waited on past genCtx.
	g, gctx := errgroup.WithContext(genCtx)
	llmDone := make(chan completion, 1)
	imageDone := make(chan *core.Image, 1)

	g.Go(func() error {
		resp, err := o.deps.Completer.Complete(gctx, chatReq)
		llmDone <- completion{raw: resp.Content(), err: err}
		return err
	})
	g.Go(func() error {
		var image *core.Image
		if o.deps.Images != nil {
			image = o.deps.Images.Resolve(gctx, req.Topic, imageOpts)
		}
		imageDone <- image
		return nil
	})

	var result completion
	select {
	case result = <-llmDone:
	case <-genCtx.Done():
		return o.fail(id, ctx, genCtx, genCtx.Err())
	}
	if result.err != nil {
		return o.fail(id, ctx, genCtx, result.err)
	}
	if !o.progress(id, StepResponseReceived, elapsed(), true) {
		return core.ErrSuperseded
	}

	o.progress(id, StepParsing, elapsed(), false)
	article := parser.ParseArticle(result.raw)
	o.progress(id, StepParsed, elapsed(), true)

	image := o.awaitImage(genCtx, imageDone)
	if !o.isCurrent(id) {
		return core.ErrSuperseded
	}
	if image != nil {
		article.Image = image
		o.progress(id, StepImageFetched, elapsed(), true)
	} else {
		o.progress(id, StepImageSkipped, elapsed(), true)
	}

	tokens := cost.EstimateTokenCount(articlePrompt, req.Topic)
	article.Metrics = core.Metrics{
		GenerationSeconds:  elapsed().Seconds(),
		TokenCountEstimate: tokens,
		EstimatedCostUSD:   cost.FormatCost(cost.EstimateCost(tokens, o.settings.Model)),
	}
	article.WritingStyle = req.Style

	log.Info("Article generated", "title", article.Title, "sections", len(article.Sections), "seconds", fmt.Sprintf("%.2f", article.Metrics.GenerationSeconds))
	return o.finish(id, req, article, start, true)
}

// awaitImage returns the resolved image, or nil once genCtx is done. A result
// already waiting wins over an expired deadline.
func (o *Orchestrator) awaitImage(genCtx context.Context, imageDone <-chan *core.Image) *core.Image {
	select {
	case image := <-imageDone:
		return image
	default:
	}
	select {
	case image := <-imageDone:
		return image
	case <-genCtx.Done():
		logger.Debug("Image lookup did not finish in time, rendering without it")
		return nil
	}
}

func (o *Orchestrator) lookupCache(req core.SearchRequest) (core.Article, bool) {
	if o.deps.Cache == nil {
		return core.Article{}, false
	}
	return o.deps.Cache.Get(req.Topic, req.Style)
}

// finish caches, records state and renders. Any step can find the session superseded.
func (o *Orchestrator) finish(id uint64, req core.SearchRequest, article core.Article, start time.Time, store bool) error {
	if !o.isCurrent(id) {
		return core.ErrSuperseded
	}
	if store && o.deps.Cache != nil {
		o.deps.Cache.Put(req.Topic, req.Style, article)
	}

	if !o.progress(id, StepRendering, o.now().Sub(start), false) {
		return core.ErrSuperseded
	}
	total := o.now().Sub(start)
	seconds := total.Seconds()
	article.Metrics.TotalLoadingSeconds = &seconds

	rendered := o.emit(id, func(s services.RenderSink) {
		o.state.setCurrent(req, article)
		s.Render(article.Clone())
	})
	if !rendered {
		return core.ErrSuperseded
	}
	o.progress(id, StepRendered, o.now().Sub(start), true)
	o.progress(id, StepTotal, total, true)
	return nil
}

// fail maps a pipeline error and shows it, unless the session is stale or the
// caller itself gave up.
func (o *Orchestrator) fail(id uint64, parent, genCtx context.Context, err error) error {
	if !o.isCurrent(id) {
		return core.ErrSuperseded
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", core.ErrTimeout, o.settings.Timeout)
	}

	logger.Error("Search failed", err, "session", id)
	o.emit(id, func(s services.RenderSink) {
		s.RenderError(core.UserMessage(err))
	})
	return err
}

func (o *Orchestrator) recordHistory(req core.SearchRequest) {
	o.state.setDefaults(req.Language, req.Style)
	if o.deps.History == nil {
		return
	}
	entry := core.HistoryEntry{
		ID:           uuid.NewString(),
		Topic:        req.Topic,
		Language:     req.Language,
		DisplayStyle: req.Style.DisplayStyle(),
		Timestamp:    o.now(),
	}
	if err := o.deps.History.Record(entry, o.settings.MaxHistory); err != nil {
		logger.Warn("Failed to record search history", "topic", req.Topic, "error", err)
	}
}
