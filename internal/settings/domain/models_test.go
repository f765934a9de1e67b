package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveFollowsTestMode(t *testing.T) {
	s := Defaults()
	s.TestClientID = "sandbox"
	s.LiveClientID = "live"

	assert.Equal(t, "sandbox", s.Active().ClientID)
	s.TestMode = false
	assert.Equal(t, "live", s.Active().ClientID)
}

func TestRedactedMasksOnlyPresentSecrets(t *testing.T) {
	s := Defaults()
	s.TestClientSecret = "abc"

	r := s.Redacted()
	assert.Equal(t, SecretMask, r.TestClientSecret)
	assert.Empty(t, r.LiveClientSecret)
	assert.Equal(t, "abc", s.TestClientSecret)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
}

func TestThemeColorFormat(t *testing.T) {
	s := Defaults()
	for _, ok := range []string{"#000000", "#ABCdef"} {
		s.ThemeColor = ok
		assert.NoError(t, s.Validate(), ok)
	}
	for _, bad := range []string{"#fff", "1a73e8", "#1a73e8ff"} {
		s.ThemeColor = bad
		assert.Error(t, s.Validate(), bad)
	}
}
