package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Record store: postgres, firebase or memory
	StoreBackend   string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DatabaseSchema string `envconfig:"DATABASE_SCHEMA" default:"bloodlink"`

	DatabaseMaxConns           int32 `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns           int32 `envconfig:"DATABASE_MIN_CONNS" default:"0"`
	DatabaseMaxConnIdleMin     uint  `envconfig:"DATABASE_MAX_CONN_IDLE_MIN" default:"15"`
	DatabaseMaxConnLifetimeMin uint  `envconfig:"DATABASE_MAX_CONN_LIFETIME_MIN" default:"45"`

	// Firebase Realtime Database
	FirebaseDatabaseURL     string `envconfig:"FIREBASE_DATABASE_URL"`
	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`

	// Read-through cache: local or redis
	CacheBackend          string `envconfig:"CACHE_BACKEND" default:"local"`
	RedisAddr             string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword         string `envconfig:"REDIS_PASSWORD"`
	RedisDB               int    `envconfig:"REDIS_DB" default:"0"`
	CacheCollectionTTLSec uint   `envconfig:"CACHE_COLLECTION_TTL_SEC" default:"30"`
	CacheRecordTTLSec     uint   `envconfig:"CACHE_RECORD_TTL_SEC" default:"120"`

	// Matching and lifecycle
	DefaultRadiusKm float64 `envconfig:"DEFAULT_RADIUS_KM" default:"50"`
	SweepSchedule   string  `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`
}
