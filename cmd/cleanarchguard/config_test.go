package main

import (
	"errors"
	"testing"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/stretchr/testify/require"
)

const sample = `
root: modules
ignore_tests: true
shared_modules: [clients, companies]
allow_violations:
  - documents/infrastructure/llm
layers:
  interfaces: [presentation, handlers, controllers]
`

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "modules", cfg.Root)
	require.True(t, cfg.IgnoreTests)

	layers := cfg.layers()
	require.Equal(t, cleanarch.LayerInterfaces, layers["controllers"])
	require.Equal(t, cleanarch.LayerApplication, layers["services"])
	require.Equal(t, cleanarch.LayerDomain, layers["entities"])
	require.Equal(t, cleanarch.LayerInfrastructure, layers["infrastructure"])

	empty, err := parseConfig([]byte("ignore_tests: false\n"))
	require.NoError(t, err)
	require.Equal(t, ".", empty.Root)
}

func TestFilter(t *testing.T) {
	cfg, err := parseConfig([]byte(sample))
	require.NoError(t, err)

	errs := []cleanarch.ValidationError{
		cleanarch.ValidationError(errors.New("cannot import between reminders and clients modules")),
		cleanarch.ValidationError(errors.New("cannot import between reminders and documents modules")),
		cleanarch.ValidationError(errors.New("domain imports documents/infrastructure/llm")),
		cleanarch.ValidationError(errors.New("domain layer imports services")),
	}
	got := cfg.filter(errs)
	require.Len(t, got, 2)
	require.Contains(t, got[0].Error(), "reminders and documents")
	require.Contains(t, got[1].Error(), "domain layer imports services")
}
