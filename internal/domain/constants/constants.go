// Package constants defines shared domain constants.
package constants

// Pub/Sub provider selectors accepted by configuration.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Deployment environment names.
const (
	EnvDevelop    = "develop"
	EnvProduction = "production"
)
