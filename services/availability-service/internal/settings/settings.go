// Package settings holds the weekly grid and conflict window configuration shared by
// every handler, the consumer and the worker.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/callboard/libs/config"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/conflicts"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/segments"
	"gopkg.in/yaml.v3"
)

const DefaultHorizonDays = 90

var DefaultDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// weekdays holds the lowercased names the resolver matches dates against.
var weekdays = func() map[string]bool {
	out := make(map[string]bool, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[strings.ToLower(d.String())] = true
	}
	return out
}()

type Settings struct {
	Days       []string `yaml:"days"`
	StartHour  int      `yaml:"start_hour"`
	EndHour    int      `yaml:"end_hour"`
	WindowDays int      `yaml:"window_days"`
	// HorizonDays bounds how far ahead imported busy intervals are kept.
	HorizonDays int    `yaml:"horizon_days"`
	Timezone    string `yaml:"timezone"`

	location *time.Location
}

func Defaults() Settings {
	return Settings{
		Days:        append([]string(nil), DefaultDays...),
		StartHour:   7,
		EndHour:     22,
		WindowDays:  conflicts.DefaultWindowDays,
		HorizonDays: DefaultHorizonDays,
		Timezone:    "UTC",
	}
}

// FromEnv reads SCHEDULE_* variables over the defaults, then applies
// SCHEDULE_CONFIG_FILE when set. The result is validated.
func FromEnv() (Settings, error) {
	s := Defaults()
	var err error

	if days := config.List("SCHEDULE_DAYS", nil); len(days) > 0 {
		s.Days = days
	}
	if s.StartHour, err = config.Int("SCHEDULE_START_HOUR", s.StartHour); err != nil {
		return Settings{}, err
	}
	if s.EndHour, err = config.Int("SCHEDULE_END_HOUR", s.EndHour); err != nil {
		return Settings{}, err
	}
	if s.WindowDays, err = config.Int("CONFLICT_WINDOW_DAYS", s.WindowDays); err != nil {
		return Settings{}, err
	}
	if s.HorizonDays, err = config.Int("BUSY_HORIZON_DAYS", s.HorizonDays); err != nil {
		return Settings{}, err
	}
	s.Timezone = config.String("SCHEDULE_TIMEZONE", s.Timezone)

	if path := strings.TrimSpace(config.String("SCHEDULE_CONFIG_FILE", "")); path != "" {
		if s, err = s.mergeFile(path); err != nil {
			return Settings{}, err
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) mergeFile(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read schedule config: %w", err)
	}
	return s.Merge(raw)
}

// Merge overlays YAML values onto s. Absent keys keep their current value.
func (s Settings) Merge(raw []byte) (Settings, error) {
	out := s
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Settings{}, fmt.Errorf("parse schedule config: %w", err)
	}
	return out, nil
}

func (s *Settings) Validate() error {
	var errs []error
	if len(s.Days) == 0 {
		errs = append(errs, errors.New("at least one schedule day is required"))
	}
	seen := map[string]bool{}
	for _, d := range s.Days {
		key := strings.ToLower(strings.TrimSpace(d))
		if key == "" {
			errs = append(errs, errors.New("schedule days must not be blank"))
			continue
		}
		if !weekdays[key] {
			errs = append(errs, fmt.Errorf("schedule day %q is not a weekday name", d))
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("schedule day %q listed twice", d))
		}
		seen[key] = true
	}
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		errs = append(errs, fmt.Errorf("schedule hours must satisfy 0 <= start < end <= 24 (got %d-%d)", s.StartHour, s.EndHour))
	}
	if s.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("conflict window must be positive (got %d)", s.WindowDays))
	}
	if s.HorizonDays != 0 && s.HorizonDays < s.WindowDays {
		errs = append(errs, fmt.Errorf("busy horizon %d must cover the conflict window %d", s.HorizonDays, s.WindowDays))
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("schedule timezone: %w", err))
	}
	s.location = loc
	return errors.Join(errs...)
}

func (s Settings) Week() segments.Week {
	days := make([]segments.Day, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, segments.Day(strings.TrimSpace(d)))
	}
	return segments.Week{Days: days, StartHour: s.StartHour, EndHour: s.EndHour}
}

// Horizon is the number of days of busy data kept at import, never less than
// the conflict window.
func (s Settings) Horizon() int {
	return max(s.HorizonDays, s.WindowDays)
}

func (s Settings) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

func (s Settings) Resolver() conflicts.Resolver {
	return conflicts.NewResolver(s.WindowDays, s.Location())
}
