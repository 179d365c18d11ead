package openapi

import "strings"

type generatorConfig struct {
	version     string
	title       string
	apiVersion  string
	description string
	contentType string
	// basePath prefixes CRUD paths; paths are only emitted when withPaths is set.
	basePath  string
	withPaths bool
	// extensions controls the x-models-* vendor keys.
	extensions bool
	// internal publishes internal fields as writeOnly properties.
	internal bool
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		version:     "3.0.3",
		title:       "Models",
		apiVersion:  "1.0.0",
		contentType: "application/json",
		extensions:  true,
	}
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the document version, 3.0.3 by default.
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version != "" {
			cfg.version = version
		}
	}
}

// InfoOption configures optional fields of the info block.
type InfoOption func(*generatorConfig)

// WithInfoDescription sets info.description.
func WithInfoDescription(description string) InfoOption {
	return func(cfg *generatorConfig) {
		cfg.description = description
	}
}

// WithInfo sets the title and version of the API. Empty strings keep the defaults.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.title = title
		}
		if version != "" {
			cfg.apiVersion = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(cfg)
			}
		}
	}
}

// WithContentType sets the media type of request and response bodies.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType != "" {
			cfg.contentType = contentType
		}
	}
}

// WithPaths emits create, read, update and delete paths for every schema under
// basePath. Schemas without an identity field only get the create path.
func WithPaths(basePath string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.withPaths = true
		cfg.basePath = strings.TrimSuffix("/"+strings.Trim(basePath, "/"), "/")
	}
}

// WithoutExtensions drops the x-models-* keys describing identity, hooks and
// custom types.
func WithoutExtensions() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.extensions = false
	}
}

// WithInternalFields publishes internal fields as writeOnly properties
// instead of leaving them out.
func WithInternalFields() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.internal = true
	}
}
