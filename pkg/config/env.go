package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

func isProductionLike(environment string) bool {
	return environment == EnvStaging || environment == EnvProduction
}
