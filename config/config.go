package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

type Config struct {
	// Сервер
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	StoreDriver string `mapstructure:"store_driver"` // memory или mysql
	ImageDir    string `mapstructure:"image_dir"`    // каталог с изображениями опроса

	// MySQL
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBMigrate  bool   `mapstructure:"db_migrate"`

	// Админский бот, пустой токен отключает бота
	TelegramToken string `mapstructure:"telegram_token"`
	AdminChatID   int64  `mapstructure:"admin_chat_id"`

	// Клиент опроса
	ServerURL   string        `mapstructure:"server_url"`
	DataDir     string        `mapstructure:"data_dir"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Набор изображений, общий для обеих задач
	Images []string `mapstructure:"images"`
}

// Addr адрес, который слушает HTTP-сервер
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Load читает .env, затем config.yaml из текущего каталога, переменные окружения важнее файла
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	return LoadFrom(".")
}

// LoadFrom читает config.yaml из указанных каталогов, файл не обязателен
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Пустой SERVER_URL отключает синхронизацию, поэтому пустые переменные тоже учитываются
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", "8080")
	v.SetDefault("store_driver", DriverMemory)
	v.SetDefault("image_dir", "./public")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "3306")
	v.SetDefault("db_user", "root")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "survey")
	v.SetDefault("db_migrate", true)

	v.SetDefault("telegram_token", "")
	v.SetDefault("admin_chat_id", 0)

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("http_timeout", "10s")

	v.SetDefault("images", []string{"/1.png", "/2.png", "/3.png", "/4.png", "/5.png", "/6.png", "/7.png", "/8.png"})
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverMySQL:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.Images) == 0 {
		return errors.New("IMAGES must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}
