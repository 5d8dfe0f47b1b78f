// Package prefs keeps the user's course-selector preferences in sync with the
// backend.
//
// Preferences is the decoded, UI-facing shape. Document is the wire shape,
// where every structured field travels as a JSON-encoded string.
package prefs

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Field names as they appear on the wire.
const (
	FieldDepartmentID        = "departmentId"
	FieldScheduleMode        = "scheduleMode"
	FieldSelectedCoursesAuto = "selectedCoursesAuto"
	FieldSelectedSections    = "selectedSections"
	FieldScheduleResult      = "scheduleResult"
	FieldQuotaWatchList      = "quotaWatchList"
	FieldActiveTab           = "activeTab"
	FieldGradeCourses        = "gradeCourses"
	FieldTabOrder            = "tabOrder"
	FieldHiddenTabs          = "hiddenTabs"
	FieldDefaultTab          = "defaultTab"
	FieldTheme               = "theme"
	FieldLanguage            = "language"
)

// Preferences is the decoded preference state. SelectedSections,
// ScheduleResult, QuotaWatchList and GradeCourses are owned by the UI and
// kept as raw JSON.
type Preferences struct {
	DepartmentID        *int64          `json:"departmentId"`
	ScheduleMode        string          `json:"scheduleMode"`
	SelectedCoursesAuto []string        `json:"selectedCoursesAuto"`
	SelectedSections    json.RawMessage `json:"selectedSections"`
	ScheduleResult      json.RawMessage `json:"scheduleResult"`
	QuotaWatchList      json.RawMessage `json:"quotaWatchList"`
	ActiveTab           string          `json:"activeTab"`
	GradeCourses        json.RawMessage `json:"gradeCourses"`
	TabOrder            []string        `json:"tabOrder,omitempty"`
	HiddenTabs          []string        `json:"hiddenTabs,omitempty"`
	DefaultTab          string          `json:"defaultTab,omitempty"`
	Theme               string          `json:"theme"`
	Language            string          `json:"language"`
}

// Defaults is the preference set used when nothing could be loaded.
func Defaults() Preferences {
	return Preferences{
		ScheduleMode:        "auto",
		SelectedCoursesAuto: []string{},
		SelectedSections:    json.RawMessage(`{}`),
		ScheduleResult:      json.RawMessage(`null`),
		QuotaWatchList:      json.RawMessage(`[]`),
		ActiveTab:           "schedule",
		GradeCourses:        json.RawMessage(`[]`),
		Theme:               "light",
		Language:            "tr",
	}
}

func (p Preferences) Clone() Preferences {
	out := p
	if p.DepartmentID != nil {
		id := *p.DepartmentID
		out.DepartmentID = &id
	}
	out.SelectedCoursesAuto = slices.Clone(p.SelectedCoursesAuto)
	out.SelectedSections = slices.Clone(p.SelectedSections)
	out.ScheduleResult = slices.Clone(p.ScheduleResult)
	out.QuotaWatchList = slices.Clone(p.QuotaWatchList)
	out.GradeCourses = slices.Clone(p.GradeCourses)
	out.TabOrder = slices.Clone(p.TabOrder)
	out.HiddenTabs = slices.Clone(p.HiddenTabs)
	return out
}

// Document is the preference record as the backend stores it.
type Document struct {
	DepartmentID        *int64 `json:"departmentId" toml:"departmentId,omitempty"`
	ScheduleMode        string `json:"scheduleMode,omitempty" toml:"scheduleMode,omitempty"`
	SelectedCoursesAuto string `json:"selectedCoursesAuto,omitempty" toml:"selectedCoursesAuto,omitempty"`
	SelectedSections    string `json:"selectedSections,omitempty" toml:"selectedSections,omitempty"`
	ScheduleResult      string `json:"scheduleResult,omitempty" toml:"scheduleResult,omitempty"`
	QuotaWatchList      string `json:"quotaWatchList,omitempty" toml:"quotaWatchList,omitempty"`
	ActiveTab           string `json:"activeTab,omitempty" toml:"activeTab,omitempty"`
	GradeCourses        string `json:"gradeCourses,omitempty" toml:"gradeCourses,omitempty"`
	TabOrder            string `json:"tabOrder,omitempty" toml:"tabOrder,omitempty"`
	HiddenTabs          string `json:"hiddenTabs,omitempty" toml:"hiddenTabs,omitempty"`
	DefaultTab          string `json:"defaultTab,omitempty" toml:"defaultTab,omitempty"`
	Theme               string `json:"theme,omitempty" toml:"theme,omitempty"`
	Language            string `json:"language,omitempty" toml:"language,omitempty"`
}

// Decode turns a wire document into Preferences. Fields the document leaves
// empty keep their default value.
func Decode(doc Document) (Preferences, error) {
	p := Defaults()
	if doc.DepartmentID != nil {
		id := *doc.DepartmentID
		p.DepartmentID = &id
	}
	setString(&p.ScheduleMode, doc.ScheduleMode)
	setString(&p.ActiveTab, doc.ActiveTab)
	setString(&p.DefaultTab, doc.DefaultTab)
	setString(&p.Theme, doc.Theme)
	setString(&p.Language, doc.Language)

	lists := []struct {
		field string
		raw   string
		dst   *[]string
	}{
		{FieldSelectedCoursesAuto, doc.SelectedCoursesAuto, &p.SelectedCoursesAuto},
		{FieldTabOrder, doc.TabOrder, &p.TabOrder},
		{FieldHiddenTabs, doc.HiddenTabs, &p.HiddenTabs},
	}
	for _, l := range lists {
		if l.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(l.raw), l.dst); err != nil {
			return Defaults(), fmt.Errorf("decode %s: %w", l.field, err)
		}
	}

	raws := []struct {
		field string
		raw   string
		dst   *json.RawMessage
	}{
		{FieldSelectedSections, doc.SelectedSections, &p.SelectedSections},
		{FieldScheduleResult, doc.ScheduleResult, &p.ScheduleResult},
		{FieldQuotaWatchList, doc.QuotaWatchList, &p.QuotaWatchList},
		{FieldGradeCourses, doc.GradeCourses, &p.GradeCourses},
	}
	for _, r := range raws {
		if r.raw == "" {
			continue
		}
		if !json.Valid([]byte(r.raw)) {
			return Defaults(), fmt.Errorf("decode %s: invalid JSON", r.field)
		}
		*r.dst = json.RawMessage(r.raw)
	}

	return p, nil
}

// DecodeJSON decodes a preference record as returned by the backend.
func DecodeJSON(data []byte) (Preferences, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Defaults(), fmt.Errorf("decode preferences: %w", err)
	}
	return Decode(doc)
}

// Encode is the inverse of Decode.
func Encode(p Preferences) (Document, error) {
	doc := Document{
		DepartmentID: p.DepartmentID,
		ScheduleMode: p.ScheduleMode,
		ActiveTab:    p.ActiveTab,
		DefaultTab:   p.DefaultTab,
		Theme:        p.Theme,
		Language:     p.Language,
	}

	var err error
	if doc.SelectedCoursesAuto, err = encodeList(p.SelectedCoursesAuto); err != nil {
		return Document{}, err
	}
	if p.TabOrder != nil {
		if doc.TabOrder, err = encodeList(p.TabOrder); err != nil {
			return Document{}, err
		}
	}
	if p.HiddenTabs != nil {
		if doc.HiddenTabs, err = encodeList(p.HiddenTabs); err != nil {
			return Document{}, err
		}
	}
	doc.SelectedSections = string(p.SelectedSections)
	doc.ScheduleResult = string(p.ScheduleResult)
	doc.QuotaWatchList = string(p.QuotaWatchList)
	doc.GradeCourses = string(p.GradeCourses)
	return doc, nil
}

// Fields flattens a document into the partial-update map used for PATCH.
// Empty fields are left out.
func (d Document) Fields() map[string]any {
	out := make(map[string]any)
	if d.DepartmentID != nil {
		out[FieldDepartmentID] = *d.DepartmentID
	}
	strs := map[string]string{
		FieldScheduleMode:        d.ScheduleMode,
		FieldSelectedCoursesAuto: d.SelectedCoursesAuto,
		FieldSelectedSections:    d.SelectedSections,
		FieldScheduleResult:      d.ScheduleResult,
		FieldQuotaWatchList:      d.QuotaWatchList,
		FieldActiveTab:           d.ActiveTab,
		FieldGradeCourses:        d.GradeCourses,
		FieldTabOrder:            d.TabOrder,
		FieldHiddenTabs:          d.HiddenTabs,
		FieldDefaultTab:          d.DefaultTab,
		FieldTheme:               d.Theme,
		FieldLanguage:            d.Language,
	}
	for k, v := range strs {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// FieldNames lists every known wire field in a stable order.
func FieldNames() []string {
	return []string{
		FieldDepartmentID, FieldScheduleMode, FieldSelectedCoursesAuto, FieldSelectedSections,
		FieldScheduleResult, FieldQuotaWatchList, FieldActiveTab, FieldGradeCourses,
		FieldTabOrder, FieldHiddenTabs, FieldDefaultTab, FieldTheme, FieldLanguage,
	}
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeValue(field string, v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", field, err)
	}
	return b, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
