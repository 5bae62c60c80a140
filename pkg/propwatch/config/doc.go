/*
Package config loads propwatch engine settings from YAML or JSON.

# Basic Usage

	settings, err := config.FromFile("propwatch.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	engine, err := propwatch.NewFromSettings(settings)

Fields missing from the file keep the values returned by Default:

	log_level: debug
	log_format: json
	metrics: true
	tracing: false
	journal:
	  enabled: true
	  driver: sqlite
	  path: /var/lib/app/propwatch.db

# Validation

Every loader validates the result. Validate reports an unknown log level,
log format or journal driver, and a sqlite journal without a path, all
wrapped in ErrInvalidSettings.
*/
package config
