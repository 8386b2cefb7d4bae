package config

const (
	EnvPrefix = "PAWBAZAAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "PAWBAZAAR_APP_ENV"
	EnvPort            = "PAWBAZAAR_APP_PORT"
	EnvFrontendBaseURL = "PAWBAZAAR_FRONTEND_BASE_URL"
	EnvPublicBaseURL   = "PAWBAZAAR_PUBLIC_BASE_URL"

	EnvDBDSN  = "PAWBAZAAR_DB_DSN"
	EnvDBHost = "PAWBAZAAR_DB_HOST"
	EnvDBUser = "PAWBAZAAR_DB_USER"
	EnvDBName = "PAWBAZAAR_DB_NAME"

	EnvRedisURL  = "PAWBAZAAR_REDIS_URL"
	EnvJWTSecret = "PAWBAZAAR_JWT_SECRET"
	EnvJWTIssuer = "PAWBAZAAR_JWT_ISSUER"
	EnvUseSQLite = "PAWBAZAAR_USE_SQLITE"

	EnvSSLCommerzStoreID       = "PAWBAZAAR_SSLCOMMERZ_STORE_ID"
	EnvSSLCommerzStorePassword = "PAWBAZAAR_SSLCOMMERZ_STORE_PASSWORD"
	EnvSSLCommerzSandbox       = "PAWBAZAAR_SSLCOMMERZ_SANDBOX"

	EnvCourierEnabled   = "PAWBAZAAR_COURIER_ENABLED"
	EnvCourierAPIKey    = "PAWBAZAAR_STEADFAST_API_KEY"
	EnvCourierSecretKey = "PAWBAZAAR_STEADFAST_SECRET_KEY"

	EnvShippingFee = "PAWBAZAAR_SHIPPING_FEE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
