package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string `yaml:"env" env-default:"local"`
	TelegramApiKey string `yaml:"telegram_api_key" env-default:""`
	GeminiApiKey   string `yaml:"gemini_api_key" env-default:""`
	OpenAIApiKey   string `yaml:"openai_api_key" env-default:""`
	Sheet          struct {
		SpreadsheetId string `yaml:"spreadsheet_id" env-default:""`
		ApiKey        string `yaml:"api_key" env-default:""`
		Range         string `yaml:"range" env-default:"Styles!A2:C"`
	} `yaml:"sheet"`
	Catalog struct {
		RefreshMinutes int `yaml:"refresh_minutes" env-default:"10"`
	} `yaml:"catalog"`
	Session struct {
		TTLMinutes int `yaml:"ttl_minutes" env-default:"5"`
	} `yaml:"session"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:""`
	} `yaml:"mongo"`
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Catalog.RefreshMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

var instance *Config
var once sync.Once

func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
		}
	})
	return instance, err
}

// MustLoad reads the config file and panics on failure; a bot without
// its Telegram key or style sheet cannot do anything useful.
func MustLoad(path string) *Config {
	conf, err := GetConfig(path)
	if err != nil {
		panic(err)
	}
	if conf.TelegramApiKey == "" {
		panic("config: telegram_api_key is required")
	}
	if conf.Sheet.SpreadsheetId == "" {
		panic("config: sheet.spreadsheet_id is required")
	}
	return conf
}
