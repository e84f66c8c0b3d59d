package modules

import (
	"github.com/iota-uz/ledgerdesk/modules/clients"
	"github.com/iota-uz/ledgerdesk/modules/companies"
	"github.com/iota-uz/ledgerdesk/modules/documents"
	"github.com/iota-uz/ledgerdesk/modules/reminders"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

// BuiltInModules returns the modules in dependency order: reminders and
// documents look up services the earlier modules register.
func BuiltInModules(store storage.Storage) []application.Module {
	return []application.Module{
		companies.NewModule(&companies.ModuleOptions{Storage: store}),
		clients.NewModule(&clients.ModuleOptions{}),
		reminders.NewModule(&reminders.ModuleOptions{}),
		documents.NewModule(&documents.ModuleOptions{Storage: store}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.Load(app, externalModules...)
}
