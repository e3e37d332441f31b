package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-library/internal/crawler"
)

// Processor defines how to crawl a single page.
// It returns extracted data items (T) and new links to follow. Items are
// saved even when err is non-nil.
type Processor[T any] interface {
	Process(ctx context.Context, url string) (data []T, links []string, err error)
}

// Sink defines how to persist the data. The batch is reused after Save
// returns.
type Sink[T any] interface {
	Save(ctx context.Context, batch []T) error
}

// MultiSink saves every batch to each of its sinks.
type MultiSink[T any] []Sink[T]

func (m MultiSink[T]) Save(ctx context.Context, batch []T) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config holds worker settings.
type Config struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	// MaxPages caps how many URLs are scheduled. Zero means no cap.
	MaxPages int
}

// Engine orchestrates the crawling process. An Engine runs once.
type Engine[T any] struct {
	config    Config
	processor Processor[T]
	sink      Sink[T]
	filter    crawler.URLFilter
	log       *zap.Logger

	// State
	visited   *crawler.VisitedSet
	domainMgr *crawler.DomainManager
	tasks     chan string
	worklist  chan []string
	results   chan T
	waitGroup sync.WaitGroup
	saveErr   error
}

// NewEngine wires a crawl. domainMgr may be nil to skip rate limiting and
// robots.txt; a nil filter follows every link.
func NewEngine[T any](cfg Config, proc Processor[T], sink Sink[T], domainMgr *crawler.DomainManager, filter crawler.URLFilter, logger *zap.Logger) *Engine[T] {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if filter == nil {
		filter = crawler.AlwaysFilter{}
	}
	return &Engine[T]{
		config:    cfg,
		processor: proc,
		sink:      sink,
		filter:    filter,
		log:       logger.Named("engine"),
		visited:   crawler.NewVisitedSet(),
		domainMgr: domainMgr,
		tasks:     make(chan string),
		worklist:  make(chan []string),
		results:   make(chan T, cfg.BatchSize*2),
	}
}

// Run crawls from startURLs and blocks until every reachable page passing
// the filter has been processed, or ctx ends. Pending results are saved
// either way. It returns ctx's error when cancelled, otherwise any error
// the sink reported.
func (engine *Engine[T]) Run(ctx context.Context, startURLs ...string) error {
	// 1. Start Storage Worker
	storageDone := make(chan struct{})
	go func() {
		defer close(storageDone)
		engine.startStorageWorker(ctx)
	}()

	// 2. Start Crawler Workers
	for i := 0; i < engine.config.Workers; i++ {
		engine.waitGroup.Add(1)
		go engine.startCrawlWorker(ctx, i)
	}

	engine.log.Info("Engine started", zap.Int("workers", engine.config.Workers), zap.Strings("start", startURLs))

	// 3. Feed the workers until the frontier drains
	err := engine.coordinate(ctx, startURLs)

	close(engine.tasks)
	engine.waitGroup.Wait()
	close(engine.results)
	<-storageDone

	engine.log.Info("Engine stopped", zap.Int("scheduled", engine.visited.Len()), zap.Error(err))
	if err != nil {
		return err
	}
	return engine.saveErr
}

// Scheduled returns how many distinct URLs were handed to workers.
func (engine *Engine[T]) Scheduled() int {
	return engine.visited.Len()
}

// coordinate owns the frontier. Every task handed out is answered by exactly
// one worklist message, so the crawl is over once nothing is queued or in flight.
func (engine *Engine[T]) coordinate(ctx context.Context, startURLs []string) error {
	var queue []string
	enqueue := func(links []string) {
		for _, link := range links {
			if !engine.filter.Filter(link) {
				continue
			}
			if engine.config.MaxPages > 0 && engine.visited.Len() >= engine.config.MaxPages {
				return
			}
			if engine.visited.Add(link) {
				queue = append(queue, link)
			}
		}
	}
	enqueue(startURLs)

	inFlight := 0
	for len(queue) > 0 || inFlight > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tasks chan<- string
		var next string
		if len(queue) > 0 {
			tasks = engine.tasks
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case tasks <- next:
			queue = queue[1:]
			inFlight++
		case links := <-engine.worklist:
			inFlight--
			enqueue(links)
		}
	}
	return nil
}

func (engine *Engine[T]) startCrawlWorker(ctx context.Context, id int) {
	defer engine.waitGroup.Done()

	for link := range engine.tasks {
		outbound := engine.process(ctx, id, link)

		select {
		case engine.worklist <- outbound:
		case <-ctx.Done():
		}
	}
}

func (engine *Engine[T]) process(ctx context.Context, id int, link string) []string {
	log := engine.log.With(zap.Int("worker", id), zap.String("url", link))

	// Checks & Rate Limiting handled by the Engine, not the Processor
	if engine.domainMgr != nil {
		if !engine.domainMgr.IsAllowed(ctx, link) {
			log.Debug("Disallowed by robots.txt")
			return nil
		}
		if err := engine.domainMgr.Wait(ctx, link); err != nil {
			return nil
		}
	}

	log.Debug("Processing")

	data, outbound, err := engine.processor.Process(ctx, link)
	for _, item := range data {
		engine.results <- item
	}
	if err != nil {
		log.Warn("Processing failed", zap.Error(err))
		return nil
	}
	return outbound
}

func (engine *Engine[T]) startStorageWorker(ctx context.Context) {
	buffer := make([]T, 0, engine.config.BatchSize)
	ticker := time.NewTicker(engine.config.FlushInterval)
	defer ticker.Stop()

	// The final flush must outlive a cancelled crawl.
	saveCtx := context.WithoutCancel(ctx)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		if err := engine.sink.Save(saveCtx, buffer); err != nil {
			engine.log.Error("Failed to save batch", zap.Int("size", len(buffer)), zap.Error(err))
			if engine.saveErr == nil {
				engine.saveErr = err
			}
		} else {
			engine.log.Debug("Saved batch", zap.Int("size", len(buffer)))
		}
		buffer = buffer[:0] // Reset buffer
	}

	for {
		select {
		case item, ok := <-engine.results:
			if !ok {
				flush()
				return
			}
			buffer = append(buffer, item)
			if len(buffer) >= engine.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
