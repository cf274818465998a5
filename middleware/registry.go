package middleware

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/omalloc/limitio/conf"
)

var globalRegistry = NewRegistry()
var _failedMiddlewareCreate = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "limitio",
	Subsystem: "middleware",
	Name:      "failed_create",
	Help:      "The total number of failed middleware create",
}, []string{"name", "required"})

func init() {
	prometheus.MustRegister(_failedMiddlewareCreate)
}

// ErrNotFound is middleware not found.
var ErrNotFound = errors.New("Middleware has not been registered")

type Registry interface {
	Register(name string, factory Factory)
	Create(c *conf.Middleware) (Middleware, func(), error)
}

type middlewareRegistry struct {
	middleware map[string]Factory
}

// NewRegistry returns a new middleware registry.
func NewRegistry() Registry {
	return &middlewareRegistry{
		middleware: map[string]Factory{},
	}
}

// Register registers one middleware.
func (p *middlewareRegistry) Register(name string, factory Factory) {
	p.middleware[createFullName(name)] = factory
}

func (r *middlewareRegistry) Create(cfg *conf.Middleware) (Middleware, func(), error) {
	fullname := createFullName(cfg.Name)
	method, ok := r.getMiddleware(fullname)
	if !ok {
		return nil, nil, ErrNotFound
	}

	instance, cleanup, err := method(cfg)
	if err != nil {
		_failedMiddlewareCreate.WithLabelValues(cfg.Name, requiredLabel(cfg.Required)).Inc()

		if cfg.Required {
			zap.L().Error("failed to create required middleware",
				zap.String("name", cfg.Name), zap.Error(err))
			return nil, nil, err
		}

		zap.L().Warn("failed to create middleware, skipping",
			zap.String("name", cfg.Name), zap.Error(err))
		return EmptyMiddleware, EmptyCleanup, nil
	}

	zap.L().Debug("middleware created", zap.String("name", fullname))
	return instance, cleanup, nil
}

func (r *middlewareRegistry) getMiddleware(name string) (Factory, bool) {
	nameLower := strings.ToLower(name)
	middlewareFn, ok := r.middleware[nameLower]
	if ok {
		return middlewareFn, true
	}
	return nil, false
}

// Register registers one middleware.
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// Create instantiates a middleware based on `cfg`.
func Create(c *conf.Middleware) (Middleware, func(), error) {
	return globalRegistry.Create(c)
}

func createFullName(name string) string {
	return strings.ToLower("limitio.middleware." + name)
}

func requiredLabel(required bool) string {
	if required {
		return "true"
	}
	return "false"
}
