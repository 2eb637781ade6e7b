package anomaly

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// ErrInvalidConfig wraps every detection configuration error
var ErrInvalidConfig = errors.New("invalid detection config")

// Configuration keys accepted by ConfigFromMap
const (
	KeySpikeWindowSeconds = "spike_window_seconds"
	KeySpikeThreshold     = "spike_threshold"
	KeyGapMinutes         = "gap_minutes"
	KeyBusinessStartHour  = "business_start_hour"
	KeyBusinessEndHour    = "business_end_hour"
	KeyCriticalEvents     = "critical_events"
)

// Config holds the parameters of all four detectors
type Config struct {
	SpikeWindowSeconds float64  `key:"spike_window_seconds" validate:"finite,gte=0,lte=9223372036"`
	SpikeThreshold     int      `key:"spike_threshold" validate:"gte=0"`
	GapMinutes         float64  `key:"gap_minutes" validate:"finite,gte=0"`
	BusinessStartHour  int      `key:"business_start_hour" validate:"gte=0,lte=23"`
	BusinessEndHour    int      `key:"business_end_hour" validate:"gte=0,lte=23"`
	CriticalEvents     []string `key:"critical_events" validate:"dive,required"`
}

// DefaultConfig returns the documented detection defaults
func DefaultConfig() Config {
	return Config{
		SpikeWindowSeconds: 2,
		SpikeThreshold:     3,
		GapMinutes:         30,
		BusinessStartHour:  9,
		BusinessEndHour:    18,
		CriticalEvents: []string{
			record.ActivityFileDelete,
			record.ActivityFileUpload,
			record.ActivityLoginFailure,
			record.ActivityLoginSuccess,
		},
	}
}

// SpikeWindow returns the spike window as a duration. Validate bounds the
// seconds so the conversion cannot overflow.
func (c Config) SpikeWindow() time.Duration {
	return time.Duration(c.SpikeWindowSeconds * float64(time.Second))
}

// CriticalSet returns the upper-cased critical activities as a set
func (c Config) CriticalSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.CriticalEvents))
	for _, ev := range c.CriticalEvents {
		set[strings.ToUpper(strings.TrimSpace(ev))] = struct{}{}
	}
	return set
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("key"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate rejects values that would produce misleading anomaly counts
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// ConfigFromMap overlays a plain key/value map on the defaults. Unknown keys
// are ignored and missing keys keep their default. The result is validated.
func ConfigFromMap(values map[string]any) (Config, error) {
	cfg := DefaultConfig()

	for key, raw := range values {
		var err error
		switch key {
		case KeySpikeWindowSeconds:
			cfg.SpikeWindowSeconds, err = toFloat(raw)
		case KeySpikeThreshold:
			cfg.SpikeThreshold, err = toInt(raw)
		case KeyGapMinutes:
			cfg.GapMinutes, err = toFloat(raw)
		case KeyBusinessStartHour:
			cfg.BusinessStartHour, err = toInt(raw)
		case KeyBusinessEndHour:
			cfg.BusinessEndHour, err = toInt(raw)
		case KeyCriticalEvents:
			cfg.CriticalEvents, err = toStrings(raw)
		default:
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toInt(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("expected an integer, got %v", v)
	}
	return int(f), nil
}

func toStrings(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, found %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}
