package config

import "time"

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	Aws struct {
		Region          string
		AccessKeyID     string
		SecretAccessKey string
	}
	Vision struct {
		ApiKey string
	}
	Verification struct {
		// FaceThreshold is the canonical similarity floor applied to every
		// face pair. Per-pair overrides left at 0 fall back to it.
		FaceThreshold             float64
		SelfiePrimaryThreshold    float64
		SelfieSecondaryThreshold  float64
		PrimarySecondaryThreshold float64
		RequestTimeout            time.Duration
		Validity                  time.Duration
	}
	RedisServer  string
	KafkaServers string
}
