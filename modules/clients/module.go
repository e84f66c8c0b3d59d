package clients

import (
	"github.com/iota-uz/ledgerdesk/modules/clients/infrastructure/persistence"
	"github.com/iota-uz/ledgerdesk/modules/clients/presentation/controllers"
	"github.com/iota-uz/ledgerdesk/modules/clients/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
)

type ModuleOptions struct{}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewClientService(persistence.NewClientRepository(), app.EventPublisher()),
	)
	app.RegisterControllers(
		controllers.NewClientsAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "clients"
}
