package config

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Decoder is config decoder.
type Decoder func(*KeyValue, map[string]any) error

// Merge is config merge func.
type Merge func(dst, src any) error

// Option is config option.
type Option func(*options)

type options struct {
	sources []Source
	decoder Decoder
	merge   Merge
}

// WithSource with config source.
func WithSource(s ...Source) Option {
	return func(o *options) {
		o.sources = s
	}
}

// WithDecoder with config decoder.
// DefaultDecoder behavior:
// If KeyValue.Format is non-empty, then KeyValue.Value will be deserialized into map[string]any
// and stored in the config cache(map[string]any)
// if KeyValue.Format is empty,{KeyValue.Key : KeyValue.Value} will be stored in config cache(map[string]any)
func WithDecoder(d Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithMergeFunc with config merge func.
func WithMergeFunc(m Merge) Option {
	return func(o *options) {
		o.merge = m
	}
}

// defaultDecoder decode config from source KeyValue
// to target map[string]any using src.Format codec.
func defaultDecoder(src *KeyValue, target map[string]any) error {
	if src.Format == "" {
		// expand key "aaa.bbb" into map[aaa]map[bbb]any
		keys := strings.Split(src.Key, ".")
		for i, k := range keys {
			if i == len(keys)-1 {
				target[k] = src.Value
			} else {
				sub := make(map[string]any)
				target[k] = sub
				target = sub
			}
		}
		return nil
	}
	if unmarshal := toUnmarshal(src.Format); unmarshal != nil {
		return unmarshal(src.Value, &target)
	}
	return fmt.Errorf("unsupported key: %s format: %s", src.Key, src.Format)
}

// defaultMerge overlays src onto dst, later sources winning per-field.
func defaultMerge(dst, src any) error {
	return mergo.Map(dst, src, mergo.WithOverride)
}

// expandEnv resolves ${VAR} placeholders in string config values.
func expandEnv(target map[string]any) {
	for k, v := range target {
		switch val := v.(type) {
		case string:
			if strings.Contains(val, "${") {
				target[k] = os.Expand(val, os.Getenv)
			}
		case map[string]any:
			expandEnv(val)
		}
	}
}

type Unmarshal func(data []byte, v any) error

func toUnmarshal(format string) Unmarshal {
	switch format {
	case "yaml", "yml":
		return yaml.Unmarshal
	case "json":
		return json.Unmarshal
	default:
		return nil
	}
}
