package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowlist_LoadsRepositoryFile(t *testing.T) {
	rules, err := LoadAllowlist("")
	require.NoError(t, err)

	c := NewClassifier(rules)
	require.Equal(t, RouteClassAPI, c.Classify("/api/clients/123"))
	require.Equal(t, RouteClassUpload, c.Classify("/companies/clean"))
	require.Equal(t, RouteClassWebhook, c.Classify("/api/webhooks/storage"))
	require.Equal(t, RouteClassOps, c.Classify("/health"))
	require.Equal(t, RouteClassOps, c.Classify("/debug/prometheus"))
	require.Equal(t, RouteClassUnknown, c.Classify("/admin"))
}

func TestParseAllowlist_Rejects(t *testing.T) {
	_, err := ParseAllowlist([]byte("version: 2\nrules: []\n"))
	require.Error(t, err)

	_, err = ParseAllowlist([]byte("version: 1\nrules:\n  - prefix: api\n    class: api\n"))
	require.ErrorContains(t, err, "must start with '/'")

	_, err = ParseAllowlist([]byte("version: 1\nrules:\n  - prefix: /x\n    class: ui\n"))
	require.ErrorContains(t, err, "unknown class")
}

func TestClassifier_LongestPrefixWins(t *testing.T) {
	c := NewClassifier([]AllowlistRule{
		{Prefix: "/api", Class: RouteClassAPI},
		{Prefix: "/api/webhooks", Class: RouteClassWebhook},
	})
	require.Equal(t, RouteClassWebhook, c.Classify("/api/webhooks/x"))
	require.Equal(t, RouteClassAPI, c.Classify("/api/clients"))
	require.Equal(t, RouteClassUnknown, c.Classify("/apidocs"))
}
