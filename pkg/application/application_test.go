package application

import (
	"errors"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type failingModule struct{}

func (failingModule) Name() string               { return "broken" }
func (failingModule) Register(Application) error { return errors.New("no pool") }

func TestApplication_ServiceRegistry(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterServices(&greeter{name: "imports"})

	svc := app.Service(greeter{}).(*greeter)
	require.Equal(t, "imports", svc.name)
	require.Panics(t, func() { app.Service(stubController{}) })
}

func TestApplication_ControllersKeepOrderAndReplaceByKey(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterControllers(stubController{key: "/b"}, stubController{key: "/a"}, stubController{key: "/b"})

	keys := []string{}
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/b", "/a"}, keys)
}

func TestLoad_WrapsModuleError(t *testing.T) {
	t.Parallel()

	err := Load(New(&ApplicationOptions{}), failingModule{})
	require.ErrorContains(t, err, "module broken: no pool")
}
