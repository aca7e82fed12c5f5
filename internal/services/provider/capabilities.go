package provider

import (
	"log/slog"

	"github.com/mealsnap/mealsnap/internal/config"
)

// Capability is an input modality a provider can analyze.
type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityImages Capability = "images"
	CapabilityAudio  Capability = "audio"
)

// Capabilities is the set of modalities a provider serves.
type Capabilities struct {
	Text   bool `json:"text"`
	Images bool `json:"images"`
	Audio  bool `json:"audio"`
}

// Has reports whether c is in the set.
func (c Capabilities) Has(cap Capability) bool {
	switch cap {
	case CapabilityText:
		return c.Text
	case CapabilityImages:
		return c.Images
	case CapabilityAudio:
		return c.Audio
	default:
		return false
	}
}

// List returns the members of the set in a stable order.
func (c Capabilities) List() []Capability {
	var out []Capability
	for _, cap := range []Capability{CapabilityText, CapabilityImages, CapabilityAudio} {
		if c.Has(cap) {
			out = append(out, cap)
		}
	}
	return out
}

// ResolveCapabilities applies the configured flags (text defaults to true,
// images and audio to false) and drops anything the vendor cannot do.
func ResolveCapabilities(name string, cfg config.CapabilitiesConfig, supported Capabilities) Capabilities {
	wanted := Capabilities{
		Text:   cfg.Text == nil || *cfg.Text,
		Images: cfg.Images != nil && *cfg.Images,
		Audio:  cfg.Audio != nil && *cfg.Audio,
	}

	resolved := Capabilities{
		Text:   wanted.Text && supported.Text,
		Images: wanted.Images && supported.Images,
		Audio:  wanted.Audio && supported.Audio,
	}

	for _, cap := range wanted.List() {
		if !resolved.Has(cap) {
			slog.Warn("Configured capability not supported by provider, ignoring",
				"provider", name,
				"capability", cap)
		}
	}
	return resolved
}
