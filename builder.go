package goSession

import (
	"net/http"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
)

// Builder assembles a Manager. Configure it during initialization, call Build once and
// discard it.
type Builder struct {
	config Config
	store  store.Store
	logger Logger

	extractor    TokenExtractor
	generator    TokenGenerator
	errorHandler ErrorHandler

	built bool
}

// New returns a Builder preloaded with DefaultConfig and the in-memory store.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the session backend. A nil store selects memory.New.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.store = st
	return b
}

// WithLogger sets the destination for operational messages. Without a logger the
// Manager is silent.
func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

// WithTokenExtractor overrides how a request token is located. The default reads
// Config.TokenKey from the query string and request body.
func (b *Builder) WithTokenExtractor(fn TokenExtractor) *Builder {
	b.extractor = fn
	return b
}

// WithTokenGenerator overrides how Generate mints tokens when none is supplied.
func (b *Builder) WithTokenGenerator(fn TokenGenerator) *Builder {
	b.generator = fn
	return b
}

// WithErrorHandler sets the response written when a session lookup fails with a store
// error. The default replies 500 Internal Server Error.
func (b *Builder) WithErrorHandler(fn ErrorHandler) *Builder {
	b.errorHandler = fn
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the lookup and commit latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager. If the store
// implements store.Watcher the Manager subscribes to its events until Close.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		config:       cfg,
		store:        b.store,
		logger:       b.logger,
		extractor:    b.extractor,
		generator:    b.generator,
		errorHandler: b.errorHandler,
		metrics:      NewMetrics(cfg.Metrics),
	}

	if m.store == nil {
		m.store = memory.New()
	}
	if m.logger == nil {
		m.logger = nopLogger{}
	}
	if m.extractor == nil {
		m.extractor = DefaultTokenExtractor(cfg.TokenKey)
	}
	if m.generator == nil {
		m.generator = RandomTokenGenerator
	}
	if m.errorHandler == nil {
		m.errorHandler = defaultErrorHandler
	}

	m.storeReady.Store(true)

	if b.logger != nil && cfg.Environment == EnvProduction {
		if _, ok := m.store.(*memory.Store); ok {
			b.logger.Warn(memoryStoreWarning)
		}
	}

	if w, ok := m.store.(store.Watcher); ok {
		m.unsubscribe = w.Subscribe(m.handleEvent)
	}

	b.built = true
	return m, nil
}

const memoryStoreWarning = "memory session store is not designed for a production environment: " +
	"it will leak memory and will not scale past a single process"

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
