package conf

import (
	"time"

	"github.com/omalloc/limitio/pkg/mapstruct"
)

type Bootstrap struct {
	Hostname string  `json:"hostname" yaml:"hostname"`
	Logger   *Logger `json:"logger" yaml:"logger"`
	Server   *Server `json:"server" yaml:"server"`
}

type Logger struct {
	Level      string `json:"level" yaml:"level"`
	Path       string `json:"path" yaml:"path"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

type Server struct {
	Addr              string        `json:"addr" yaml:"addr"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	MaxHeaderBytes    int           `json:"max_header_bytes" yaml:"max_header_bytes"`
	Middleware        []*Middleware `json:"middleware" yaml:"middleware"`
}

// Middleware represents a middleware configuration.
type Middleware struct {
	Name     string         `json:"name" yaml:"name"`
	Required bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Options  map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Unmarshal decodes the Options map into a typed option struct.
func (m *Middleware) Unmarshal(in any) error {
	return mapstruct.Decode(m.Options, in)
}

// Default returns a Bootstrap with usable server defaults; config sources
// are merged over it.
func Default() *Bootstrap {
	return &Bootstrap{
		Logger: &Logger{
			Level: "info",
		},
		Server: &Server{
			Addr:              ":8000",
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}
}
