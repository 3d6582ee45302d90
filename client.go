// Package blogkit is a client for the jackblog REST API. It layers an
// optimistic, subscription-based entity cache over the HTTP gateway so user
// interactions (comments, replies, reactions, likes) reflect instantly and
// reconcile with, or roll back to, authoritative server state.
package blogkit

import (
	"net/http"

	"github.com/jackblog/blogkit/cache"
	"github.com/jackblog/blogkit/config"
	"github.com/jackblog/blogkit/identity"
	"github.com/jackblog/blogkit/mutate"
	"github.com/jackblog/blogkit/rest"
	"github.com/jackblog/blogkit/session"
)

// Client wires the gateway, cache, mutation engine, anonymous identity, and
// admin session into one facade. Construct it explicitly; there is no
// package-level singleton.
type Client struct {
	cfg     config.Settings
	gw      *rest.Gateway
	cache   *cache.Store
	engine  *mutate.Engine
	ids     *identity.Provider
	session *session.Session
}

// Option customises client construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
	store      identity.Store
	notifier   mutate.Notifier
}

// WithHTTPClient injects the HTTP client used by the gateway.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithStore injects the durable key/value store backing identity and session
// persistence, overriding the configured file path.
func WithStore(store identity.Store) Option {
	return func(o *options) { o.store = store }
}

// WithNotifier injects the notifier that surfaces mutation outcomes.
func WithNotifier(notifier mutate.Notifier) Option {
	return func(o *options) { o.notifier = notifier }
}

// New builds a client from settings.
func New(cfg config.Settings, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		if cfg.Identity.Path != "" {
			store = identity.NewFileStore(cfg.Identity.Path)
		} else {
			store = identity.NewMemoryStore()
		}
	}

	gw := rest.NewGateway(cfg, o.httpClient)
	c := &Client{
		cfg:     cfg,
		gw:      gw,
		cache:   cache.New(cache.Options{RefetchAttempts: cfg.Cache.RefetchAttempts}),
		ids:     identity.NewProvider(store),
		session: session.New(gw, store),
	}
	c.engine = mutate.NewEngine(c.cache, o.notifier)
	return c, nil
}

// Auth exposes the admin session surface.
func (c *Client) Auth() *session.Session {
	return c.session
}

// ClientID returns the anonymous identity used for reactions and likes.
func (c *Client) ClientID() string {
	return c.ids.ClientID()
}

// Close stops background cache work and waits for it to finish.
func (c *Client) Close() {
	c.cache.Close()
}
