package domain

import "time"

// SettingsScopeGlobal is the scope key of the default settings row; any other
// scope is a user id.
const SettingsScopeGlobal = "global"

type Capability string

const (
	CapabilityEdit       Capability = "allowEdit"
	CapabilityDelete     Capability = "allowDelete"
	CapabilityForward    Capability = "allowForward"
	CapabilityFileUpload Capability = "allowFileUpload"
)

type ChatSettings struct {
	AllowEdit       bool `json:"allowEdit"`
	AllowDelete     bool `json:"allowDelete"`
	AllowForward    bool `json:"allowForward"`
	AllowFileUpload bool `json:"allowFileUpload"`
}

func (s ChatSettings) Allows(c Capability) bool {
	switch c {
	case CapabilityEdit:
		return s.AllowEdit
	case CapabilityDelete:
		return s.AllowDelete
	case CapabilityForward:
		return s.AllowForward
	case CapabilityFileUpload:
		return s.AllowFileUpload
	}
	return false
}

// Apply resolves override ?? s for every capability.
func (s ChatSettings) Apply(o SettingsOverride) ChatSettings {
	if o.AllowEdit != nil {
		s.AllowEdit = *o.AllowEdit
	}
	if o.AllowDelete != nil {
		s.AllowDelete = *o.AllowDelete
	}
	if o.AllowForward != nil {
		s.AllowForward = *o.AllowForward
	}
	if o.AllowFileUpload != nil {
		s.AllowFileUpload = *o.AllowFileUpload
	}
	return s
}

// SettingsOverride holds the capabilities set explicitly for one scope.
// A nil field falls through to the global value.
type SettingsOverride struct {
	AllowEdit       *bool `json:"allowEdit,omitempty"`
	AllowDelete     *bool `json:"allowDelete,omitempty"`
	AllowForward    *bool `json:"allowForward,omitempty"`
	AllowFileUpload *bool `json:"allowFileUpload,omitempty"`
}

func (o SettingsOverride) IsEmpty() bool {
	return o.AllowEdit == nil && o.AllowDelete == nil && o.AllowForward == nil && o.AllowFileUpload == nil
}

// Merge returns o with every field set in patch replaced.
func (o SettingsOverride) Merge(patch SettingsOverride) SettingsOverride {
	if patch.AllowEdit != nil {
		o.AllowEdit = patch.AllowEdit
	}
	if patch.AllowDelete != nil {
		o.AllowDelete = patch.AllowDelete
	}
	if patch.AllowForward != nil {
		o.AllowForward = patch.AllowForward
	}
	if patch.AllowFileUpload != nil {
		o.AllowFileUpload = patch.AllowFileUpload
	}
	return o
}

// Full returns an override with every field set from s.
func (s ChatSettings) Full() SettingsOverride {
	return SettingsOverride{
		AllowEdit:       boolPtr(s.AllowEdit),
		AllowDelete:     boolPtr(s.AllowDelete),
		AllowForward:    boolPtr(s.AllowForward),
		AllowFileUpload: boolPtr(s.AllowFileUpload),
	}
}

// StoredSettings is one persisted settings row.
type StoredSettings struct {
	Scope     string           `json:"scope"`
	Override  SettingsOverride `json:"override"`
	UpdatedAt time.Time        `json:"updatedAt"`
	UpdatedBy string           `json:"updatedBy,omitempty"`
}

// ChatSettingsConfiguration is the admin view of all settings.
type ChatSettingsConfiguration struct {
	Global        ChatSettings                `json:"global"`
	UserOverrides map[string]SettingsOverride `json:"userOverrides"`
}

func boolPtr(b bool) *bool {
	return &b
}
