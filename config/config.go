package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MessageRate    float64       `mapstructure:"message_rate"`
	MessageBurst   int           `mapstructure:"message_burst"`
	Heartbeat      time.Duration `mapstructure:"heartbeat"`
}

type GameConfig struct {
	// TeardownGrace 空房间在被删除前保留的时间，0 表示立即删除
	TeardownGrace time.Duration `mapstructure:"teardown_grace"`
	RoomIDLength  int           `mapstructure:"room_id_length"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type DatabaseConfig struct {
	// Driver 取值 memory、gorm 或 postgres
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":3000")
	v.SetDefault("server.rpc_address", ":3001")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})
	v.SetDefault("server.message_rate", 10)
	v.SetDefault("server.message_burst", 20)
	v.SetDefault("server.heartbeat", time.Minute)
	v.SetDefault("game.teardown_grace", 10*time.Minute)
	v.SetDefault("game.room_id_length", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.namespace", "hangman")
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "hangman")
}

// LoadConfig 从 path 下的 config.yaml 和环境变量读取配置。
// 配置文件不存在时只使用默认值和环境变量，例如 SERVER_HTTP_ADDRESS。
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
