// Command cleanarchguard checks that module packages only import inward:
// presentation and handlers may use services, services may use domain, and
// domain imports no other layer.
package main

import (
	"flag"
	"os"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/pkg/logging"
)

func main() {
	var (
		configPath = flag.String("config", ".gocleanarch.yml", "path to the layer configuration")
		debug      = flag.Bool("debug", false, "print go-cleanarch debug output")
	)
	flag.Parse()

	logger := logging.ConsoleLogger(logrus.InfoLevel)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("cleanarchguard: failed to read config")
	}
	root, err := resolveRoot(cfg.Root)
	if err != nil {
		logger.WithError(err).Fatal("cleanarchguard: invalid root")
	}
	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}

	validator := cleanarch.NewValidator(cfg.layers())
	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		logger.WithError(err).Fatal("cleanarchguard: validation failed to run")
	}

	violations := cfg.filter(errs)
	if !ok && len(violations) > 0 {
		for _, v := range violations {
			logger.Error(v.Error())
		}
		logger.Errorf("cleanarchguard: %d layering violations", len(violations))
		os.Exit(1)
	}
	logger.Info("cleanarchguard: ok")
}
