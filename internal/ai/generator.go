package ai

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
)

// Generator produces a full value set for a form's fields
type Generator struct {
	provider Provider
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator wraps a provider
func NewGenerator(provider Provider, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := uint64(time.Now().UnixNano())
	return &Generator{
		provider: provider,
		log:      logger.Named("generator"),
		rnd:      rand.New(rand.NewPCG(now, now>>1)),
	}
}

// Values returns one value per fillable field, keyed by field name. File and
// captcha fields are left out. A provider failure falls back to a typed
// default so the map always covers every fillable field.
func (g *Generator) Values(ctx context.Context, fields []form.Field) map[string]string {
	if lp, ok := g.provider.(*LocalProvider); ok {
		lp.NextPerson()
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Unfillable() {
			continue
		}
		values[f.Name] = g.value(ctx, f)
	}
	return values
}

func (g *Generator) value(ctx context.Context, f form.Field) string {
	switch {
	case f.Type == form.TypeSelect && len(f.Options) > 0:
		return g.pick(f.Options)
	case f.Type == form.TypeCheckbox || f.Type == form.TypeRadio:
		return g.pick([]string{"true", "false"})
	}

	v, err := g.provider.GenerateValue(ctx, f)
	if err != nil || v == "" {
		g.log.Warn("value generation failed, using fallback",
			zap.String("field", f.Name),
			zap.Error(err),
		)
		return fallbackValue(f)
	}
	return v
}

func (g *Generator) pick(pool []string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return pick(g.rnd, pool)
}

// fallbackValue is a fixed, valid-looking value for the field type
func fallbackValue(f form.Field) string {
	switch f.Type {
	case form.TypeEmail:
		return "test@example.com"
	case form.TypeTel:
		return "+1234567890"
	case form.TypeNumber, form.TypeRange:
		return "42"
	case form.TypeDate:
		return time.Now().Format(time.DateOnly)
	case form.TypePassword:
		return "Test123!@#"
	case form.TypeURL:
		return "https://example.com"
	case form.TypeTextarea:
		return "Sample text for testing purposes."
	case form.TypeCheckbox, form.TypeRadio:
		return "false"
	default:
		return "Test value"
	}
}
