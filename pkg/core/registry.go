package core

import (
	"sync"

	"github.com/evoforge/evoforge/pkg/errors"
)

// codecRegistry manages explicit registration of gene variants. Variants are
// registered by name at startup; nothing is discovered via reflection.
type codecRegistry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

var registry = &codecRegistry{codecs: make(map[string]Codec)}

// RegisterCodec registers a gene codec under its name. Registering a second
// codec with the same name returns an error instead of silently replacing
// the first.
func RegisterCodec(codec Codec) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	name := codec.Name()
	if _, exists := registry.codecs[name]; exists {
		return errors.WithFields(
			errors.New(errors.InvalidConfiguration, "gene codec already registered"),
			errors.Fields{"codec": name})
	}
	registry.codecs[name] = codec
	return nil
}

// GetCodec returns the codec registered under name.
func GetCodec(name string) (Codec, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	codec, ok := registry.codecs[name]
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "unknown gene codec"),
			errors.Fields{"codec": name})
	}
	return codec, nil
}

// RegisteredCodecs lists the names of all registered gene variants.
func RegisteredCodecs() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.codecs))
	for name := range registry.codecs {
		names = append(names, name)
	}
	return names
}
