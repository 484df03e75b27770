/*
Copyright 2026 The catalogd Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the typed option set recognized by the service
// (spec §6.5): storage/queue connection strings, crawler auth, GitHub
// curation repository location, CDN flush settings and the current schema
// version. Process bootstrap beyond parsing and validating this file is out
// of scope for the core.
package config

import (
	"fmt"
	"os"
	"time"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerOptions configures the HTTP surface.
type ServerOptions struct {
	Port        string `yaml:"port" validate:"required"`
	MetricsPort string `yaml:"metricsPort"`
}

// StorageOptions configures the harvest/definition/attachment backing
// stores. ConnectionString is opaque to this package (interpreted by the
// concrete store implementation).
type StorageOptions struct {
	HarvestConnectionString    string `yaml:"harvestConnectionString"`
	HarvestContainer           string `yaml:"harvestContainer"`
	DefinitionConnectionString string `yaml:"definitionConnectionString"`
	DefinitionContainer        string `yaml:"definitionContainer"`
	AttachmentConnectionString string `yaml:"attachmentConnectionString"`
	AttachmentContainer        string `yaml:"attachmentContainer"`
}

// QueueOptions configures the harvest/curation/upgrade queues.
type QueueOptions struct {
	ConnectionString string `yaml:"connectionString"`
	HarvestQueue     string `yaml:"harvestQueue" validate:"required"`
	CurationQueue    string `yaml:"curationQueue"`
	UpgradeQueue     string `yaml:"upgradeQueue" validate:"required"`
}

// CrawlerOptions configures the crawler client used to enqueue harvest
// requests and fetch tool-version summaries.
type CrawlerOptions struct {
	URL        string        `yaml:"url" validate:"required"`
	AuthToken  string        `yaml:"authToken"`
	Secret     string        `yaml:"secret" validate:"required"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
}

// CurationOptions configures the GitHub repository that stores curation
// files and accepts contribution pull requests.
type CurationOptions struct {
	Owner           string `yaml:"owner" validate:"required"`
	Repo            string `yaml:"repo" validate:"required"`
	Branch          string `yaml:"branch" validate:"required"`
	Token           string `yaml:"token"`
	WebhookSecret   string `yaml:"webhookSecret" validate:"required"`
}

// CDNOptions configures batched tag invalidation.
type CDNOptions struct {
	FlushURL  string        `yaml:"flushUrl"`
	AuthKey   string        `yaml:"authKey"`
	AuthEmail string        `yaml:"authEmail"`
	Watermark int           `yaml:"watermark" validate:"gt=0"`
	Interval  time.Duration `yaml:"interval"`
}

// SchemaOptions pins the structural version the service currently targets.
type SchemaOptions struct {
	CurrentVersion string `yaml:"currentVersion" validate:"required"`
}

// Options is the full typed configuration tree.
type Options struct {
	Server   ServerOptions   `yaml:"server"`
	Storage  StorageOptions  `yaml:"storage"`
	Queue    QueueOptions    `yaml:"queue"`
	Crawler  CrawlerOptions  `yaml:"crawler"`
	Curation CurationOptions `yaml:"curation"`
	CDN      CDNOptions      `yaml:"cdn"`
	Schema   SchemaOptions   `yaml:"schema"`
}

// Default returns zero-value-safe defaults for fields that are meaningful
// even when unset (watermark, interval).
func Default() Options {
	return Options{
		Server: ServerOptions{Port: "8080", MetricsPort: "9090"},
		CDN:    CDNOptions{Watermark: 20, Interval: 5 * time.Minute},
		Crawler: CrawlerOptions{HTTPTimeout: 30 * time.Second},
	}
}

var validate = validator.New()

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &opts, nil
}
