package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Worker   WorkerConfig
	FFmpeg   FFmpegConfig
	Cgroup   CgroupConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type WorkerConfig struct {
	WorkerCount int
	MaxCPUUsage float64
	TempDir     string
	OutputDir   string
}

type FFmpegConfig struct {
	FFmpegPath  string
	FFprobePath string
}

// CgroupConfig controls per-job cgroup isolation. When disabled (or when
// cgroup creation fails) jobs still run, but in-flight ffmpeg processes are
// only terminated through context cancellation.
type CgroupConfig struct {
	Enabled   bool
	CPUShares uint64
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
	JobQueueKey   string
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	InputBucket  string
	OutputBucket string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Redis.JobQueueKey == "" {
		c.Redis.JobQueueKey = "media_jobs"
	}
	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = "ffmpeg"
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = "ffprobe"
	}
	return &c, nil
}
