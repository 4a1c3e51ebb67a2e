// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mutualref/mutualref/internal/model"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN,required"`
	AdminID  int64  `env:"ADMIN_ID,required"`

	// ProtectedID can never be banned and always bypasses maintenance.
	ProtectedID int64 `env:"PROTECTED_ID" envDefault:"7839284712"`

	// ArchivePath enables the sqlite journal when set. Empty runs
	// fully in memory.
	ArchivePath string `env:"ARCHIVE_DB"`

	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	APIURL      string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`

	Partner1Name string `env:"PARTNER1_NAME" envDefault:"AtlantaVPN"`
	Partner1URL  string `env:"PARTNER1_URL" envDefault:"https://t.me/AtlantaVPN_bot?start=ref_7839284712"`
	Partner2Name string `env:"PARTNER2_NAME" envDefault:"Nursultan VPN"`
	Partner2URL  string `env:"PARTNER2_URL" envDefault:"https://t.me/nursultan_vpn_bot?start=ref_7839284712"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c Config) Partners() [2]model.Partner {
	return [2]model.Partner{
		{Name: c.Partner1Name, URL: c.Partner1URL},
		{Name: c.Partner2Name, URL: c.Partner2URL},
	}
}
