package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

var ErrUnsafeSecretKey = errors.New("secretKey must be set in production")

type Config struct {
	Env              string
	Build            string
	AppName          string
	Debug            bool
	TestMode         bool
	SecretKey        string
	DefaultFromEmail mail.Address
	RollbarToken     string
	SendgridApiKey   string

	Server struct {
		Host               string
		Address            string
		JWTExpirationDelta time.Duration
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		AllowOrigins       []string
		AuthRateLimit      float64 // requests/second per client IP on /api/auth; 0 disables it
	}

	Database struct {
		Engine     string
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
		// InMemory swaps the Postgres repositories for the in-process ones (local demos only).
		InMemory bool
	}

	Redis struct {
		Address  string // empty: token revocations are kept in memory
		Password string
		DB       int
	}

	Fees struct {
		DefaultAmount int64
	}

	Payment struct {
		Latency      time.Duration
		DisplayDelay time.Duration
		SuccessRate  float64
	}

	Client struct {
		BaseURL        string
		StatePath      string
		RequestTimeout time.Duration
	}
}

func (c *Config) DBAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// Validate refuses configurations that must never reach production.
func (c *Config) Validate() error {
	if c.Env == "PROD" && (c.SecretKey == "" || c.SecretKey == defaultSecretKey) {
		return ErrUnsafeSecretKey
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return errors.Errorf("payment.successRate must be within [0, 1], got %v", c.Payment.SuccessRate)
	}
	if c.Fees.DefaultAmount <= 0 {
		return errors.Errorf("fees.defaultAmount must be positive, got %d", c.Fees.DefaultAmount)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Fee Portal")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("defaultFromEmail", "Fee Portal <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("server.authRateLimit", 0.0)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "feeportal")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("fees.defaultAmount", int64(5000))

	v.SetDefault("payment.latency", 3*time.Second)
	v.SetDefault("payment.displayDelay", 2*time.Second)
	v.SetDefault("payment.successRate", 0.9)

	v.SetDefault("client.baseURL", "http://localhost:3001")
	v.SetDefault("client.statePath", "portal.db")
	v.SetDefault("client.requestTimeout", 10*time.Second)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists)
// and the environment. Env vars are prefixed with the env name: DEV_SECRETKEY, PROD_SERVER_ADDRESS...
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwtExpirationDelta")
	conf.Server.ReadTimeout = v.GetDuration("server.readTimeout")
	conf.Server.WriteTimeout = v.GetDuration("server.writeTimeout")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.AllowOrigins = v.GetStringSlice("server.allowOrigins")
	conf.Server.AuthRateLimit = v.GetFloat64("server.authRateLimit")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")
	conf.Database.InMemory = v.GetBool("database.inMemory")

	conf.Redis.Address = v.GetString("redis.address")
	conf.Redis.Password = v.GetString("redis.password")
	conf.Redis.DB = v.GetInt("redis.db")

	conf.Fees.DefaultAmount = v.GetInt64("fees.defaultAmount")

	conf.Payment.Latency = v.GetDuration("payment.latency")
	conf.Payment.DisplayDelay = v.GetDuration("payment.displayDelay")
	conf.Payment.SuccessRate = v.GetFloat64("payment.successRate")

	conf.Client.BaseURL = v.GetString("client.baseURL")
	conf.Client.StatePath = v.GetString("client.statePath")
	conf.Client.RequestTimeout = v.GetDuration("client.requestTimeout")

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
