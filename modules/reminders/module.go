package reminders

import (
	"strings"

	"github.com/sirupsen/logrus"

	clientservices "github.com/iota-uz/ledgerdesk/modules/clients/services"
	companyservices "github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/modules/reminders/handlers"
	"github.com/iota-uz/ledgerdesk/modules/reminders/infrastructure/mail"
	"github.com/iota-uz/ledgerdesk/modules/reminders/infrastructure/persistence"
	"github.com/iota-uz/ledgerdesk/modules/reminders/infrastructure/post"
	"github.com/iota-uz/ledgerdesk/modules/reminders/presentation/controllers"
	"github.com/iota-uz/ledgerdesk/modules/reminders/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
)

type ModuleOptions struct{}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

// Register needs the clients and companies modules registered first.
func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	leadDays, err := conf.Reminders.LeadDays()
	if err != nil {
		return err
	}
	clients := app.Service(clientservices.ClientService{}).(*clientservices.ClientService)
	lookup := app.Service(companyservices.LookupService{}).(*companyservices.LookupService)

	queue := persistence.NewReminderQueue(app.DB())
	dispatcher, err := services.NewDispatcher(
		queue,
		clients,
		notifiers(conf),
		persistence.NewLeader(app.DB(), "ledgerdesk:reminders"),
		services.DispatcherOptions{
			PollInterval: conf.Reminders.PollInterval,
			BatchSize:    conf.Reminders.BatchSize,
			MaxAttempts:  conf.Reminders.MaxAttempts,
			MaxBackoff:   conf.Reminders.MaxBackoff,
			SendTimeout:  conf.Reminders.SendTimeout,
			SingleActive: conf.Reminders.SingleActive,
			Logger:       logrus.NewEntry(app.Logger()).WithField("component", "reminders"),
		},
	)
	if err != nil {
		return err
	}

	app.RegisterServices(
		services.NewReminderService(persistence.NewReminderRepository(), clients, lookup, services.SeedOptions{
			LeadDays: leadDays,
			SendHour: conf.Reminders.SendHour,
		}),
		dispatcher,
		services.NewCleaner(queue, 0, conf.Reminders.Retention, logrus.NewEntry(app.Logger())),
	)
	app.RegisterControllers(
		controllers.NewRemindersAPIController(app),
	)
	handlers.RegisterClientEventHandlers(app)
	return nil
}

func notifiers(conf *configuration.Configuration) map[reminder.Channel]services.Notifier {
	out := make(map[reminder.Channel]services.Notifier)
	if conf.Mail.Enabled {
		var scopes []string
		for _, s := range strings.Split(conf.Mail.Scopes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		out[reminder.ChannelEmail] = mail.NewSender(mail.Options{
			URL:          conf.Mail.URL,
			From:         conf.Mail.From,
			APIKey:       conf.Mail.APIKey,
			TokenURL:     conf.Mail.TokenURL,
			ClientID:     conf.Mail.ClientID,
			ClientSecret: conf.Mail.ClientSecret,
			Scopes:       scopes,
			Timeout:      conf.Reminders.SendTimeout,
		})
	}
	if conf.Post.Enabled {
		out[reminder.ChannelPost] = post.NewSender(post.Options{
			URL:     conf.Post.URL,
			APIKey:  conf.Post.APIKey,
			Test:    conf.Post.Test,
			Timeout: conf.Reminders.SendTimeout,
		})
	}
	return out
}

func (m *Module) Name() string {
	return "reminders"
}
