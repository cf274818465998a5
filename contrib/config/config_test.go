package config

import (
	"errors"
	"testing"
	"time"
)

const (
	_testJSON = `{
	"server": {
		"addr": ":9000",
		"middleware": [
			{"name": "bodylimit", "options": {"max_bytes": 4096}}
		]
	},
	"logger": {
		"level": "debug",
		"path": "/var/log/limitio"
	}
}`

	_testYAML = `
logger:
  level: warn
`
)

type testConfigStruct struct {
	Server struct {
		Addr       string `json:"addr"`
		Middleware []struct {
			Name    string         `json:"name"`
			Options map[string]any `json:"options"`
		} `json:"middleware"`
	} `json:"server"`
	Logger struct {
		Level string `json:"level"`
		Path  string `json:"path"`
	} `json:"logger"`
}

type testSource struct {
	data   string
	format string
	sig    chan struct{}
	err    chan struct{}
}

func newTestSource(data, format string) *testSource {
	return &testSource{data: data, format: format, sig: make(chan struct{}), err: make(chan struct{})}
}

func (p *testSource) Load() ([]*KeyValue, error) {
	kv := &KeyValue{
		Key:    p.format,
		Value:  []byte(p.data),
		Format: p.format,
	}
	return []*KeyValue{kv}, nil
}

func (p *testSource) Watch() (Watcher, error) {
	return newTestWatcher(p.sig, p.err), nil
}

type testWatcher struct {
	sig  chan struct{}
	err  chan struct{}
	exit chan struct{}
}

func newTestWatcher(sig, err chan struct{}) Watcher {
	return &testWatcher{sig: sig, err: err, exit: make(chan struct{})}
}

func (w *testWatcher) Next() ([]*KeyValue, error) {
	select {
	case <-w.sig:
		return nil, nil
	case <-w.err:
		return nil, errors.New("error")
	case <-w.exit:
		return nil, errors.New("stopped")
	}
}

func (w *testWatcher) Stop() error {
	select {
	case <-w.exit:
	default:
		close(w.exit)
	}
	return nil
}

func TestConfigScan(t *testing.T) {
	c := New[testConfigStruct](WithSource(newTestSource(_testJSON, "json")))
	defer c.Close()

	var v testConfigStruct
	if err := c.Scan(&v); err != nil {
		t.Fatal(err)
	}

	if v.Server.Addr != ":9000" {
		t.Fatalf("expected addr :9000, got %q", v.Server.Addr)
	}
	if len(v.Server.Middleware) != 1 || v.Server.Middleware[0].Name != "bodylimit" {
		t.Fatalf("unexpected middleware: %+v", v.Server.Middleware)
	}
	if v.Logger.Level != "debug" {
		t.Fatalf("expected logger level debug, got %q", v.Logger.Level)
	}
}

func TestConfigScanMergesSources(t *testing.T) {
	// later sources overlay earlier ones per-field
	c := New[testConfigStruct](WithSource(
		newTestSource(_testJSON, "json"),
		newTestSource(_testYAML, "yaml"),
	))
	defer c.Close()

	var v testConfigStruct
	if err := c.Scan(&v); err != nil {
		t.Fatal(err)
	}

	if v.Logger.Level != "warn" {
		t.Fatalf("expected overlaid logger level warn, got %q", v.Logger.Level)
	}
	if v.Logger.Path != "/var/log/limitio" {
		t.Fatalf("expected base logger path kept, got %q", v.Logger.Path)
	}
	if v.Server.Addr != ":9000" {
		t.Fatalf("expected base addr kept, got %q", v.Server.Addr)
	}
}

func TestConfigWatch(t *testing.T) {
	src := newTestSource(_testJSON, "json")
	c := New[testConfigStruct](WithSource(src))
	defer c.Close()

	var v testConfigStruct
	if err := c.Scan(&v); err != nil {
		t.Fatal(err)
	}

	notified := make(chan struct{}, 1)
	if err := c.Watch("logger", func(key string, bc *testConfigStruct) {
		select {
		case notified <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}

	src.sig <- struct{}{}

	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("observer was not notified after source change")
	}
}

func TestConfigScanUnknownFormat(t *testing.T) {
	c := New[testConfigStruct](WithSource(newTestSource("whatever", "toml")))
	defer c.Close()

	var v testConfigStruct
	if err := c.Scan(&v); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
