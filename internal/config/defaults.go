package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Gemini: GeminiConfig{
			APIKey:  "${GEMINI_API_KEY}",
			APIBase: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-2.0-flash",
		},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8000,
			PublicDir: "public",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:        false,
				ParseMode:      "Markdown",
				DefaultEmotion: "neutral",
				DefaultIntent:  "talk",
			},
		},
		Persona: PersonaConfig{
			Default: "default",
		},
		History: HistoryConfig{
			Enabled:       false,
			DBPath:        "~/.stepone/history.db",
			RetentionDays: 90,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
