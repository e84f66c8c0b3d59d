package documents

import (
	clientservices "github.com/iota-uz/ledgerdesk/modules/clients/services"
	"github.com/iota-uz/ledgerdesk/modules/documents/infrastructure/llm"
	"github.com/iota-uz/ledgerdesk/modules/documents/infrastructure/persistence"
	"github.com/iota-uz/ledgerdesk/modules/documents/presentation/controllers"
	"github.com/iota-uz/ledgerdesk/modules/documents/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/cache"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

type ModuleOptions struct {
	Storage storage.Storage
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

// Register needs the clients module registered first.
func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	clients := app.Service(clientservices.ClientService{}).(*clientservices.ClientService)

	var analysisCache cache.Cache = cache.NewMemoryCache(conf.OpenAI.CacheTTL)
	if app.Redis() != nil {
		analysisCache = cache.NewRedisCache(app.Redis(), "ledgerdesk:documents", conf.OpenAI.CacheTTL)
	}
	completer := llm.NewClient(llm.Options{
		APIKey:      conf.OpenAI.Key,
		BaseURL:     conf.OpenAI.BaseURL,
		Model:       conf.OpenAI.Model,
		Temperature: conf.OpenAI.Temperature,
		MaxTokens:   conf.OpenAI.MaxTokens,
		MaxRetries:  2,
	})

	documents := services.NewDocumentService(
		persistence.NewDocumentRepository(),
		clients,
		m.options.Storage,
		conf.Supabase.DocumentsBucket,
		app.EventPublisher(),
	)
	app.RegisterServices(
		documents,
		services.NewAnalysisService(documents, completer, analysisCache),
	)
	app.RegisterControllers(
		controllers.NewDocumentsAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "documents"
}
