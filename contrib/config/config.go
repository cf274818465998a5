package config

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/omalloc/limitio/pkg/mapstruct"
)

// Observer is config observer.
type Observer[T any] func(string, *T)

// Config is a config interface.
type Config[T any] interface {
	Scan(v *T) error
	Watch(key string, o Observer[T]) error
	Close() error
}

type config[T any] struct {
	opts   *options
	stop   chan struct{}
	signal chan os.Signal

	mu        sync.Mutex
	watchers  []Watcher
	observers map[string][]Observer[T]
	bc        *T
}

func New[T any](opts ...Option) Config[T] {
	o := &options{
		decoder: defaultDecoder,
		merge:   defaultMerge,
	}

	for _, opt := range opts {
		opt(o)
	}

	c := &config[T]{
		opts:      o,
		stop:      make(chan struct{}, 1),
		signal:    make(chan os.Signal, 1),
		observers: make(map[string][]Observer[T]),
		bc:        nil,
	}

	go c.tick()

	return c
}

func (c *config[T]) Scan(v *T) error {
	c.bc = v

	target := make(map[string]any)
	for _, source := range c.opts.sources {
		files, err := source.Load()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("config file not found: %w", err)
			}
			return err
		}
		for _, file := range files {
			zap.L().Debug("load config source", zap.String("key", file.Key), zap.String("format", file.Format))
			layer := make(map[string]any)
			if err := c.opts.decoder(file, layer); err != nil {
				return fmt.Errorf("decode config %s: %w", file.Key, err)
			}
			if err := c.opts.merge(&target, layer); err != nil {
				return fmt.Errorf("merge config %s: %w", file.Key, err)
			}
		}
	}

	expandEnv(target)
	return mapstruct.Decode(target, v)
}

func (c *config[T]) Watch(key string, o Observer[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.observers[key] == nil {
		c.observers[key] = make([]Observer[T], 0, 8)

		c.watchSources()
	}
	c.observers[key] = append(c.observers[key], o)
	return nil
}

func (c *config[T]) Close() error {
	c.mu.Lock()
	for _, w := range c.watchers {
		_ = w.Stop()
	}
	c.watchers = nil
	c.mu.Unlock()

	c.stop <- struct{}{}
	close(c.stop)
	close(c.signal)

	return nil
}

// watchSources starts one goroutine per source watcher; first Watch call
// only.
func (c *config[T]) watchSources() {
	if c.watchers != nil {
		return
	}
	c.watchers = make([]Watcher, 0, len(c.opts.sources))

	for _, source := range c.opts.sources {
		w, err := source.Watch()
		if err != nil {
			zap.L().Warn("config source does not support watching", zap.Error(err))
			continue
		}
		c.watchers = append(c.watchers, w)

		go func(w Watcher) {
			for {
				if _, err := w.Next(); err != nil {
					return
				}
				c.reload()
			}
		}(w)
	}
}

func (c *config[T]) reload() {
	if c.bc == nil {
		return
	}
	if err := c.Scan(c.bc); err != nil {
		zap.L().Error("config reload failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, observers := range c.observers {
		zap.L().Debug("config upgraded", zap.String("key", k))
		for _, observer := range observers {
			observer(k, c.bc)
		}
	}
}

func (c *config[T]) tick() {
	signal.Notify(c.signal, syscall.SIGHUP)

	for {
		select {
		case <-c.stop:
			return
		case <-c.signal:
			zap.L().Debug("config received SIGHUP")
			c.reload()
		}
	}
}
