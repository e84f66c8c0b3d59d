package companies

import (
	"time"

	"github.com/iota-uz/ledgerdesk/modules/companies/handlers"
	"github.com/iota-uz/ledgerdesk/modules/companies/infrastructure/persistence"
	registryapi "github.com/iota-uz/ledgerdesk/modules/companies/infrastructure/registry"
	"github.com/iota-uz/ledgerdesk/modules/companies/presentation/controllers"
	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
	"github.com/iota-uz/ledgerdesk/pkg/webhooks"
)

const webhookReplayTTL = 10 * time.Minute

type ModuleOptions struct {
	Storage storage.Storage
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	repo := persistence.NewCompanyRepository(conf.Import.Table)
	client := registryapi.NewClient(registryapi.Options{
		BaseURL: conf.Registry.BaseURL,
		APIKey:  conf.Registry.APIKey,
		RPS:     conf.Registry.RPS,
		Burst:   conf.Registry.Burst,
		Timeout: conf.Registry.Timeout,
	})

	app.RegisterServices(
		services.NewImportService(repo, m.options.Storage, services.ImportOptions{
			BatchSize:   conf.Import.BatchSize,
			MaxFileSize: conf.Import.MaxFileSize,
			Bucket:      conf.Supabase.ImportBucket,
		}),
		services.NewLookupService(repo, client),
	)

	var protector webhooks.ReplayProtector = webhooks.NewMemoryReplayProtector(webhookReplayTTL)
	if app.Redis() != nil {
		protector = webhooks.NewRedisReplayProtector(app.Redis(), "ledgerdesk:webhooks", webhookReplayTTL)
	}
	app.RegisterControllers(
		controllers.NewImportController(app, m.options.Storage),
		controllers.NewCompaniesAPIController(app),
		controllers.NewStorageWebhookController(app, webhooks.SecretVerifier{Secret: conf.WebhookSecret}, protector),
	)
	handlers.RegisterStorageEventHandlers(app)
	return nil
}

func (m *Module) Name() string {
	return "companies"
}
