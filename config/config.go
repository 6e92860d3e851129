package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres        Postgres
	Redis           Redis
	Cache           Cache
	USSD            USSD
	AfricasTalking  AfricasTalking
	Gemini          Gemini
	Scraper         Scraper
	Market          Market
	Files           Files
	Jobs            Jobs
	StocksMenuLimit int `env:"STOCKS_MENU_LIMIT" envDefault:"10"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Cache struct {
	StocksExpiration time.Duration `env:"CACHE_STOCKS_EXPIRATION" envDefault:"10m"`
}

type USSD struct {
	Port         int           `env:"USSD_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"USSD_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"USSD_WRITE_TIMEOUT" envDefault:"10s"`
}

type AfricasTalking struct {
	Username string        `env:"AT_USERNAME"`
	APIKey   string        `env:"AT_API_KEY"`
	SenderID string        `env:"AT_SENDER_ID" envDefault:""`
	BaseURL  string        `env:"AT_BASE_URL" envDefault:"https://api.africastalking.com"`
	Timeout  time.Duration `env:"AT_TIMEOUT" envDefault:"15s"`
	Debug    bool          `env:"AT_DEBUG" envDefault:"false"`
}

type Gemini struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
}

type Scraper struct {
	TargetURL string        `env:"SCRAPER_TARGET_URL" envDefault:"https://www.tradingview.com/markets/stocks-kenya/market-movers-all-stocks/"`
	UserAgent string        `env:"SCRAPER_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`
	Headless  bool          `env:"SCRAPER_HEADLESS" envDefault:"true"`
	Timeout   time.Duration `env:"SCRAPER_TIMEOUT" envDefault:"60s"`
}

type Market struct {
	OpenHour          int    `env:"MARKET_OPEN_HOUR" envDefault:"8"`
	CloseHour         int    `env:"MARKET_CLOSE_HOUR" envDefault:"15"`
	CloseMinuteBuffer int    `env:"MARKET_CLOSE_MINUTE_BUFFER" envDefault:"5"`
	OpenCrontab       string `env:"MARKET_OPEN_CRONTAB" envDefault:"0 8 * * 1-5"`
	CloseCrontab      string `env:"MARKET_CLOSE_CRONTAB" envDefault:"5 15 * * 1-5"`
}

type Files struct {
	StocksFile string `env:"STOCKS_FILE" envDefault:"cleaned_stock_prices.json"`
	StatusFile string `env:"STATUS_FILE" envDefault:"scheduler_status.json"`
}

type Jobs struct {
	ScrapeInterval time.Duration `env:"SCRAPE_JOB_INTERVAL" envDefault:"5m"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
