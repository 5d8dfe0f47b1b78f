package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/miracckms/Couse-Selector-Advance/internal/debounce"
	"github.com/miracckms/Couse-Selector-Advance/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultDelay is the quiet period before merged updates are written.
const DefaultDelay = time.Second

var ErrUnknownField = errors.New("unknown preference field")

// Remote is the preferences endpoint group.
type Remote interface {
	Get(ctx context.Context) (json.RawMessage, error)
	Put(ctx context.Context, doc any) (json.RawMessage, error)
	Patch(ctx context.Context, updates map[string]any) (json.RawMessage, error)
}

type Options struct {
	Delay time.Duration
	// AfterFunc replaces time.AfterFunc for the debounce timer.
	AfterFunc debounce.AfterFunc
	Logger    *zerolog.Logger
	Metrics   *metrics.Metrics
}

// Synchronizer holds the optimistic local mirror of the user's preferences
// and forwards edits to the backend through a merging debounce.
type Synchronizer struct {
	remote    Remote
	debouncer *debounce.Debouncer[string, any]
	logger    zerolog.Logger

	mu      sync.RWMutex
	mirror  *Preferences
	loading bool
	saving  bool
	err     error
}

func NewSynchronizer(remote Remote, opts Options) *Synchronizer {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "prefs").Logger()

	s := &Synchronizer{remote: remote, logger: logger}
	s.debouncer = debounce.New[string, any](opts.Delay, s.push, debounce.Options{
		OnError:      s.setErr,
		OnFlushStart: func() { s.setSaving(true) },
		OnFlushEnd:   func() { s.setSaving(false) },
		AfterFunc:    opts.AfterFunc,
		Logger:       &logger,
		Metrics:      opts.Metrics,
	})
	return s
}

// Load fetches the full preference record. It never fails: on a transport or
// decode error the defaults are returned, installed as the mirror, and the
// error is recorded for Err.
func (s *Synchronizer) Load(ctx context.Context) Preferences {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	p, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load preferences, using defaults")
		s.err = err
		p = Defaults()
	}
	s.mirror = &p
	return p.Clone()
}

func (s *Synchronizer) fetch(ctx context.Context) (Preferences, error) {
	raw, err := s.remote.Get(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return DecodeJSON(raw)
}

// Preferences returns a copy of the mirror. ok is false until Load or
// Replace has run.
func (s *Synchronizer) Preferences() (p Preferences, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mirror == nil {
		return Preferences{}, false
	}
	return s.mirror.Clone(), true
}

func (s *Synchronizer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Synchronizer) Saving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

// Err is the most recent load or save failure.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Pending is the merged update waiting for the quiet period to end.
func (s *Synchronizer) Pending() map[string]any {
	return s.debouncer.Pending()
}

// Flush writes pending updates now.
func (s *Synchronizer) Flush(ctx context.Context) error {
	return s.debouncer.Flush(ctx)
}

// Close flushes pending updates and stops accepting new ones.
func (s *Synchronizer) Close(ctx context.Context) error {
	return s.debouncer.Close(ctx)
}

// Replace overwrites the whole record on the backend and the mirror. Pending
// partial updates are flushed first so they cannot land on top of p.
func (s *Synchronizer) Replace(ctx context.Context, p Preferences) error {
	doc, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Pending updates lost before replace")
	}

	cp := p.Clone()
	s.mu.Lock()
	s.mirror = &cp
	s.mu.Unlock()

	if _, err := s.remote.Put(ctx, doc); err != nil {
		s.setErr(err)
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Set applies fields given in wire form, as typed on a command line. Every
// value is parsed before any of them is applied.
func (s *Synchronizer) Set(fields map[string]string) error {
	updates := make([]func() error, 0, len(fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		u, err := s.parseField(k, fields[k])
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	for _, u := range updates {
		if err := u(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) parseField(field, value string) (func() error, error) {
	noErr := func(f func()) func() error {
		return func() error { f(); return nil }
	}

	switch field {
	case FieldDepartmentID:
		if value == "" || value == "null" {
			return noErr(func() { s.UpdateDepartment(nil) }), nil
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		return noErr(func() { s.UpdateDepartment(&id) }), nil
	case FieldScheduleMode:
		return noErr(func() { s.UpdateScheduleMode(value) }), nil
	case FieldActiveTab:
		return noErr(func() { s.UpdateActiveTab(value) }), nil
	case FieldDefaultTab:
		return noErr(func() { s.UpdateDefaultTab(value) }), nil
	case FieldTheme:
		return noErr(func() { s.UpdateTheme(value) }), nil
	case FieldLanguage:
		return noErr(func() { s.UpdateLanguage(value) }), nil
	case FieldSelectedCoursesAuto, FieldTabOrder, FieldHiddenTabs:
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return nil, fmt.Errorf("%s: expected a JSON array of strings: %w", field, err)
		}
		switch field {
		case FieldSelectedCoursesAuto:
			return noErr(func() { s.UpdateSelectedCourses(list) }), nil
		case FieldTabOrder:
			return noErr(func() { s.UpdateTabOrder(list) }), nil
		default:
			return noErr(func() { s.UpdateHiddenTabs(list) }), nil
		}
	case FieldSelectedSections, FieldScheduleResult, FieldQuotaWatchList, FieldGradeCourses:
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("%s: value is not valid JSON", field)
		}
		raw := json.RawMessage(value)
		switch field {
		case FieldSelectedSections:
			return func() error { return s.UpdateSelectedSections(raw) }, nil
		case FieldScheduleResult:
			return func() error { return s.UpdateScheduleResult(raw) }, nil
		case FieldQuotaWatchList:
			return func() error { return s.UpdateQuotaWatchList(raw) }, nil
		default:
			return func() error { return s.UpdateGradeCourses(raw) }, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func (s *Synchronizer) UpdateDepartment(id *int64) {
	var cp *int64
	if id != nil {
		v := *id
		cp = &v
	}
	s.apply(func(p *Preferences) { p.DepartmentID = cp })
	s.schedule(FieldDepartmentID, cp)
}

func (s *Synchronizer) UpdateScheduleMode(mode string) {
	s.apply(func(p *Preferences) { p.ScheduleMode = mode })
	s.schedule(FieldScheduleMode, mode)
}

func (s *Synchronizer) UpdateSelectedCourses(codes []string) {
	codes = nonNil(codes)
	s.apply(func(p *Preferences) { p.SelectedCoursesAuto = slices.Clone(codes) })
	s.scheduleList(FieldSelectedCoursesAuto, codes)
}

func (s *Synchronizer) UpdateSelectedSections(sections any) error {
	return s.updateRaw(FieldSelectedSections, sections, func(p *Preferences, raw json.RawMessage) { p.SelectedSections = raw })
}

func (s *Synchronizer) UpdateScheduleResult(result any) error {
	return s.updateRaw(FieldScheduleResult, result, func(p *Preferences, raw json.RawMessage) { p.ScheduleResult = raw })
}

func (s *Synchronizer) UpdateQuotaWatchList(list any) error {
	return s.updateRaw(FieldQuotaWatchList, list, func(p *Preferences, raw json.RawMessage) { p.QuotaWatchList = raw })
}

func (s *Synchronizer) UpdateActiveTab(tab string) {
	s.apply(func(p *Preferences) { p.ActiveTab = tab })
	s.schedule(FieldActiveTab, tab)
}

func (s *Synchronizer) UpdateGradeCourses(courses any) error {
	return s.updateRaw(FieldGradeCourses, courses, func(p *Preferences, raw json.RawMessage) { p.GradeCourses = raw })
}

func (s *Synchronizer) UpdateTheme(theme string) {
	s.apply(func(p *Preferences) { p.Theme = theme })
	s.schedule(FieldTheme, theme)
}

func (s *Synchronizer) UpdateLanguage(language string) {
	s.apply(func(p *Preferences) { p.Language = language })
	s.schedule(FieldLanguage, language)
}

func (s *Synchronizer) UpdateTabOrder(tabs []string) {
	tabs = nonNil(tabs)
	s.apply(func(p *Preferences) { p.TabOrder = slices.Clone(tabs) })
	s.scheduleList(FieldTabOrder, tabs)
}

func (s *Synchronizer) UpdateHiddenTabs(tabs []string) {
	tabs = nonNil(tabs)
	s.apply(func(p *Preferences) { p.HiddenTabs = slices.Clone(tabs) })
	s.scheduleList(FieldHiddenTabs, tabs)
}

func (s *Synchronizer) UpdateDefaultTab(tab string) {
	s.apply(func(p *Preferences) { p.DefaultTab = tab })
	s.schedule(FieldDefaultTab, tab)
}

func (s *Synchronizer) updateRaw(field string, v any, set func(*Preferences, json.RawMessage)) error {
	raw, err := encodeValue(field, v)
	if err != nil {
		return err
	}
	s.apply(func(p *Preferences) { set(p, slices.Clone(raw)) })
	s.schedule(field, string(raw))
	return nil
}

func (s *Synchronizer) scheduleList(field string, v []string) {
	encoded, err := encodeList(v)
	if err != nil {
		// []string always marshals.
		panic(err)
	}
	s.schedule(field, encoded)
}

// apply mutates the mirror in place. Before the first load there is nothing
// to mutate and only the write is scheduled.
func (s *Synchronizer) apply(f func(*Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mirror != nil {
		f(s.mirror)
	}
}

func (s *Synchronizer) schedule(field string, v any) {
	s.debouncer.Schedule(map[string]any{field: v})
}

func (s *Synchronizer) push(ctx context.Context, batch map[string]any) error {
	_, err := s.remote.Patch(ctx, batch)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	s.logger.Debug().Int("fields", len(batch)).Msg("Preferences saved")
	return nil
}

func (s *Synchronizer) setSaving(v bool) {
	s.mu.Lock()
	s.saving = v
	s.mu.Unlock()
}

func (s *Synchronizer) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
