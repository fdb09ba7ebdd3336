package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it is informational.
const EnvPrefix = "FRESHROUTE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "FRESHROUTE_APP_ENV"
	EnvPort         = "FRESHROUTE_APP_PORT"
	EnvLogLevel     = "FRESHROUTE_LOG_LEVEL"
	EnvServiceKind  = "FRESHROUTE_SERVICE_KIND"
	EnvDBDSN        = "FRESHROUTE_DB_DSN"
	EnvDBHost       = "FRESHROUTE_DB_HOST"
	EnvDBPort       = "FRESHROUTE_DB_PORT"
	EnvDBUser       = "FRESHROUTE_DB_USER"
	EnvDBPassword   = "FRESHROUTE_DB_PASSWORD"
	EnvDBName       = "FRESHROUTE_DB_NAME"
	EnvDBSSLMode    = "FRESHROUTE_DB_SSLMODE"
	EnvRedisURL     = "FRESHROUTE_REDIS_URL"
	EnvUseSQLite    = "FRESHROUTE_USE_SQLITE"
	EnvAutoMigrate  = "FRESHROUTE_AUTO_MIGRATE"
	EnvGCPProjectID = "FRESHROUTE_GCP_PROJECT_ID"
	EnvDomainTopic  = "FRESHROUTE_PUBSUB_DOMAIN_TOPIC"

	EnvSweepInterval   = "FRESHROUTE_SWEEP_INTERVAL"
	EnvSweepBatchSize  = "FRESHROUTE_SWEEP_BATCH_SIZE"
	EnvNearExpiryDays  = "FRESHROUTE_NEAR_EXPIRY_DAYS"
	EnvPendingOrderTTL = "FRESHROUTE_PENDING_ORDER_TTL"
	EnvTransferSpeed   = "FRESHROUTE_TRANSFER_AVG_SPEED_KPH"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
