// Package config loads the application configuration from environment
// variables, with optional .env file support for local development.
package config
