package main

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"gopkg.in/yaml.v3"
)

type config struct {
	Root           string   `yaml:"root"`
	IgnoreTests    bool     `yaml:"ignore_tests"`
	IgnorePackages []string `yaml:"ignore_packages"`
	// SharedModules may be imported from any layer of another module.
	SharedModules     []string `yaml:"shared_modules"`
	AllowedViolations []string `yaml:"allow_violations"`
	Layers            struct {
		Domain         []string `yaml:"domain"`
		Application    []string `yaml:"application"`
		Interfaces     []string `yaml:"interfaces"`
		Infrastructure []string `yaml:"infrastructure"`
	} `yaml:"layers"`
}

var (
	defaultDomain         = []string{"domain", "entities"}
	defaultApplication    = []string{"services"}
	defaultInterfaces     = []string{"presentation", "handlers"}
	defaultInfrastructure = []string{"infrastructure"}
)

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*config, error) {
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", errors.New("root must not be empty")
	}
	return filepath.Abs(root)
}

// layers maps directory names to layers. A configured list replaces the
// default for that layer.
func (c *config) layers() map[string]cleanarch.Layer {
	out := make(map[string]cleanarch.Layer)
	add := func(custom, defaults []string, layer cleanarch.Layer) {
		names := defaults
		if len(custom) > 0 {
			names = custom
		}
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[n] = layer
			}
		}
	}
	add(c.Layers.Domain, defaultDomain, cleanarch.LayerDomain)
	add(c.Layers.Application, defaultApplication, cleanarch.LayerApplication)
	add(c.Layers.Interfaces, defaultInterfaces, cleanarch.LayerInterfaces)
	add(c.Layers.Infrastructure, defaultInfrastructure, cleanarch.LayerInfrastructure)
	return out
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// filter drops cross-module findings that involve a shared module and any
// finding matching an allowed substring.
func (c *config) filter(errs []cleanarch.ValidationError) []cleanarch.ValidationError {
	shared := make(map[string]struct{}, len(c.SharedModules))
	for _, m := range c.SharedModules {
		if m = strings.TrimSpace(m); m != "" {
			shared[m] = struct{}{}
		}
	}

	var out []cleanarch.ValidationError
	for _, e := range errs {
		msg := e.Error()
		if involvesShared(msg, shared) || c.allowed(msg) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func involvesShared(msg string, shared map[string]struct{}) bool {
	m := crossModulePattern.FindStringSubmatch(msg)
	if len(m) != 3 {
		return false
	}
	_, left := shared[m[1]]
	_, right := shared[m[2]]
	return left || right
}

func (c *config) allowed(msg string) bool {
	for _, p := range c.AllowedViolations {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
