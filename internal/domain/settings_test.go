package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatSettingsApply(t *testing.T) {
	global := ChatSettings{AllowEdit: true, AllowDelete: true, AllowForward: false, AllowFileUpload: true}
	no, yes := false, true

	effective := global.Apply(SettingsOverride{AllowEdit: &no, AllowForward: &yes})
	assert.False(t, effective.AllowEdit)
	assert.True(t, effective.AllowDelete)
	assert.True(t, effective.AllowForward)
	assert.True(t, effective.AllowFileUpload)

	assert.Equal(t, global, global.Apply(SettingsOverride{}))
}

func TestChatSettingsAllows(t *testing.T) {
	s := ChatSettings{AllowEdit: true, AllowFileUpload: true}
	assert.True(t, s.Allows(CapabilityEdit))
	assert.False(t, s.Allows(CapabilityDelete))
	assert.False(t, s.Allows(CapabilityForward))
	assert.True(t, s.Allows(CapabilityFileUpload))
	assert.False(t, s.Allows("allowEverything"))
}

func TestSettingsOverrideMerge(t *testing.T) {
	no, yes := false, true
	base := SettingsOverride{AllowEdit: &no}

	merged := base.Merge(SettingsOverride{AllowDelete: &yes})
	assert.False(t, *merged.AllowEdit)
	assert.True(t, *merged.AllowDelete)
	assert.Nil(t, merged.AllowForward)

	assert.True(t, SettingsOverride{}.IsEmpty())
	assert.False(t, merged.IsEmpty())

	full := ChatSettings{AllowEdit: true}.Full()
	assert.True(t, *full.AllowEdit)
	assert.False(t, *full.AllowFileUpload)
}
