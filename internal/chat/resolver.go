package chat

import (
	"errors"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/store"
)

// Temperature bounds enforced on every resolved and saved value.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// Overrides carries per-request configuration. Nil fields fall through to
// the persisted conversation config, then to global defaults.
type Overrides struct {
	Model       *string
	Directive   *string
	Temperature *float64
}

// Effective is the fully-resolved configuration a completion call runs with.
type Effective struct {
	Model       string
	Directive   string
	Temperature float64
}

// Resolve computes the effective configuration for one request against one
// conversation. Precedence per field: request override, then persisted
// conversation config, then global default. A request-supplied model must be
// known to the catalog; persisted and default models are trusted as-is so a
// catalog outage never bricks existing conversations.
func (s *Service) Resolve(id string, ov Overrides) (Effective, error) {
	if ov.Model != nil && s.catalog != nil && !s.catalog.Valid(*ov.Model) {
		return Effective{}, &apperr.ValidationError{
			Field:   "model_name",
			Value:   *ov.Model,
			Allowed: s.catalog.Allowed(),
		}
	}

	persisted := s.persistedConfig(id)

	eff := Effective{
		Model:       s.defaultModel(),
		Directive:   s.directive,
		Temperature: s.cfg.Temperature,
	}

	if persisted != nil {
		if persisted.ModelName != "" {
			eff.Model = persisted.ModelName
		}
		if persisted.SystemDirective != nil && *persisted.SystemDirective != "" {
			eff.Directive = *persisted.SystemDirective
		}
		if persisted.Temperature != nil {
			eff.Temperature = *persisted.Temperature
		}
	}

	if ov.Model != nil && *ov.Model != "" {
		eff.Model = *ov.Model
	}
	if ov.Directive != nil && *ov.Directive != "" {
		eff.Directive = *ov.Directive
	}
	if ov.Temperature != nil {
		eff.Temperature = *ov.Temperature
	}

	eff.Temperature = clampTemperature(eff.Temperature)
	return eff, nil
}

// persistedConfig loads the conversation config, treating missing and
// corrupt files as absent. Corruption is logged; a damaged config never
// fails a chat request.
func (s *Service) persistedConfig(id string) *store.Config {
	cfg, err := s.store.LoadConfig(id)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			s.log.Warn("conversation config unreadable, using defaults", "kind", s.kind, "id", id, "err", err)
		}
		return nil
	}
	return cfg
}

func clampTemperature(t float64) float64 {
	if t < minTemperature {
		return minTemperature
	}
	if t > maxTemperature {
		return maxTemperature
	}
	return t
}

func isNotFound(err error) bool {
	var nf *apperr.NotFoundError
	return errors.As(err, &nf)
}
