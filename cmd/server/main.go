package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchparty/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	defaultMediaUrl = configVar[string]{
		envKey:       "SERVER_DEFAULT_MEDIA_URL",
		flagKey:      "default-media-url",
		defaultValue: "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
	}
	chatHistoryLimit = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_LIMIT",
		flagKey:      "chat-history-limit",
		defaultValue: 50,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	storeTimeoutMs = configVar[int]{
		envKey:       "SERVER_STORE_TIMEOUT_MS",
		flagKey:      "store-timeout-ms",
		defaultValue: 2000,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(defaultMediaUrl.flagKey, defaultMediaUrl.defaultValue, "Media url freshly created rooms start with")
	pflag.Int(chatHistoryLimit.flagKey, chatHistoryLimit.defaultValue, "Maximum number of chat messages returned as history")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Int(storeTimeoutMs.flagKey, storeTimeoutMs.defaultValue, "Store operation timeout in milliseconds")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(defaultMediaUrl.flagKey, defaultMediaUrl.envKey)
	viper.BindEnv(chatHistoryLimit.flagKey, chatHistoryLimit.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(storeTimeoutMs.flagKey, storeTimeoutMs.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(defaultMediaUrl.flagKey, defaultMediaUrl.defaultValue)
	viper.SetDefault(chatHistoryLimit.flagKey, chatHistoryLimit.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(storeTimeoutMs.flagKey, storeTimeoutMs.defaultValue)

	config := &app.AppConfig{
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		DefaultMediaUrl:  viper.GetString(defaultMediaUrl.flagKey),
		ChatHistoryLimit: viper.GetInt(chatHistoryLimit.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
		StoreTimeoutMs:   viper.GetInt(storeTimeoutMs.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
