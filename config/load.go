package config

import (
	"errors"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load 加载进程配置。
// 优先级：环境变量 > 配置文件 > Default*Config 默认值。
// path 为空时只查找工作目录下的 config.yaml（不存在不算错误）。
func Load(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// 环境变量覆盖，如: MEETSERVER_MYSQL_HOST, MEETSERVER_TELEGRAM_BOTTOKEN
	v.SetEnvPrefix("MEETSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, err
		}
		// 默认路径下找不到配置文件时直接用默认值
	}

	// 结构体只有 yaml 标签，按 yaml 标签解码
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return cfg, err
	}

	return cfg, nil
}
