package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Optional infrastructure. Empty disables the feature.
	RedisAddr    string `env:"REDIS_ADDR"`
	KafkaBrokers string `env:"KAFKA_BROKERS"`

	// Order policy knobs.
	DeliveryCostCents int64 `env:"DELIVERY_COST_CENTS" default:"300"`
	RestockOnCancel   bool  `env:"RESTOCK_ON_CANCEL" default:"false"`
}
