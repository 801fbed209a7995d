// Package measure provides text width backends for the pagination engine.
// Widths are reported in px for a font of the requested px size.
package measure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
)

// Backend names a measurement implementation.
type Backend string

const (
	BackendCore   Backend = "core"
	BackendCanvas Backend = "canvas"
	BackendShaper Backend = "shaper"
	BackendNone   Backend = "none"
)

// ErrUnavailable is returned when no measurement capability is configured.
var ErrUnavailable = errors.New("text measurement unavailable")

// ParseBackend accepts the backend names used in configuration.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendCore, BackendCanvas, BackendShaper, BackendNone:
		return b, nil
	case "":
		return BackendCanvas, nil
	default:
		return "", fmt.Errorf("unknown measurement backend %q", name)
	}
}

// New builds a measurer. fontFile is used by the canvas and shaper backends;
// empty means the embedded regular face. An empty backend means canvas.
func New(backend Backend, fontFile string) (layout.TextMeasurer, error) {
	switch backend {
	case BackendCore:
		return NewCore()
	case BackendCanvas, BackendShaper, "":
		data, err := fonts.Resolve(fontFile)
		if err != nil {
			return nil, err
		}
		if backend == BackendShaper {
			return NewShaper(data)
		}
		return NewCanvas(data)
	case BackendNone:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unknown measurement backend %q", backend)
	}
}
