// Package portal assembles the insurance portal client core from a
// configuration: session handling, the product catalog, the purchase
// wizard and the issued-policy views, all backed by one HTTP client.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/portal/cache"
	rediscache "go.pilab.hu/portal/cache/redis"
	"go.pilab.hu/portal/client"
	"go.pilab.hu/portal/config"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/payment"
	"go.pilab.hu/portal/policies"
	"go.pilab.hu/portal/quotation"
	"go.pilab.hu/portal/session"
	"go.pilab.hu/portal/upload"
	"go.pilab.hu/portal/wizard"
)

// redisKeyPrefix namespaces the catalog keys written to a shared Redis.
const redisKeyPrefix = "portal"

// Portal owns every component of the client core. Fields are set by New
// and must not be replaced afterwards.
type Portal struct {
	Config *config.PortalConfig
	Logger log.Logger

	Client   *client.Client
	State    *session.Dispatcher
	Sessions *session.Manager
	Catalog  *cache.Catalog
	Quotes   *quotation.Engine
	Uploads  *upload.Uploader
	Payments *payment.Submitter
	Policies *policies.Service
	Viewer   *policies.Viewer
	Wizard   *wizard.Controller

	closers []func() error
}

type options struct {
	logger     log.Logger
	httpClient *http.Client
	store      cache.CatalogStore
	redis      *redis.Client
}

// Option customises New.
type Option func(*options)

// WithLogger sets the logger shared by all components.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client used for remote calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCatalogStore overrides the catalog cache backend chosen by
// CATALOG_CACHE.
func WithCatalogStore(s cache.CatalogStore) Option {
	return func(o *options) { o.store = s }
}

// WithRedisClient supplies the client used when CATALOG_CACHE=redis. The
// caller keeps ownership of it.
func WithRedisClient(rc *redis.Client) Option {
	return func(o *options) { o.redis = rc }
}

// New builds the client core. Close releases background resources.
func New(cfg *config.PortalConfig, opts ...Option) (*Portal, error) {
	if cfg == nil {
		return nil, errors.New("portal: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("portal: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}

	p := &Portal{Config: cfg, Logger: o.logger}

	tokens := session.NewStore()
	clientOpts := []client.Option{
		client.WithTimeout(cfg.RequestTimeout),
		client.WithTokenSource(tokens),
		client.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}
	c, err := client.New(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("portal: %w", err)
	}
	p.Client = c

	p.State = session.NewDispatcher()
	p.Sessions = session.NewManager(c, tokens, p.State, o.logger)
	// A protected call rejected with 401 means the credential is gone.
	c.SetOnUnauthorized(p.Sessions.Invalidate)

	store, err := p.catalogStore(o)
	if err != nil {
		return nil, err
	}
	p.Catalog = cache.NewCatalog(c, store, cfg.CatalogCacheTTL, o.logger)

	p.Quotes = quotation.NewEngine(c, o.logger)
	p.closers = append(p.closers, p.Quotes.Close)

	p.Uploads = upload.NewUploader(c, cfg.MaxUploadBytes, o.logger)
	p.Policies = policies.NewService(c, p.Sessions, o.logger)
	p.Viewer = policies.NewViewer(p.Policies)
	p.Payments = payment.NewSubmitter(c, p.Policies, o.logger)
	p.Wizard = wizard.NewController(p.Catalog, p.Quotes, p.Uploads, p.Payments, o.logger)

	o.logger.Debug(context.Background(), "portal core assembled", map[string]interface{}{
		"api_base_url":  cfg.APIBaseURL,
		"catalog_cache": cfg.CatalogCache,
	})
	return p, nil
}

func (p *Portal) catalogStore(o options) (cache.CatalogStore, error) {
	if o.store != nil {
		return o.store, nil
	}
	switch p.Config.CatalogCache {
	case config.CatalogCacheNone:
		return nil, nil
	case config.CatalogCacheRedis:
		rc := o.redis
		if rc == nil {
			rc = redis.NewClient(&redis.Options{Addr: p.Config.RedisAddr})
			p.closers = append(p.closers, rc.Close)
		}
		return rediscache.NewCatalogStore(rc, redisKeyPrefix), nil
	default:
		s := cache.NewMemoryCatalogStore()
		p.closers = append(p.closers, s.Close)
		return s, nil
	}
}

// Close abandons the active wizard run and releases background resources.
func (p *Portal) Close() error {
	if p.Wizard != nil {
		p.Wizard.Abandon()
	}
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
