// Package config loads the static server configuration from HCL and
// manages the runtime-mutable settings file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration.
type Config struct {
	Server   ServerSettings
	Admin    AdminSettings
	Database DBSettings
	PayPal   PayPalSettings
	Tables   []TableConfig
}

// fileConfig is the HCL shape of Config. Every block is a pointer so
// gohcl treats it as optional; nil blocks fall back to the defaults.
type fileConfig struct {
	Server   *ServerSettings `hcl:"server,block"`
	Admin    *AdminSettings  `hcl:"admin,block"`
	Database *DBSettings     `hcl:"database,block"`
	PayPal   *PayPalSettings `hcl:"paypal,block"`
	Tables   []TableConfig   `hcl:"table,block"`
}

// ServerSettings contains the client-facing listener configuration.
type ServerSettings struct {
	Address            string `hcl:"address,optional"`
	Port               int    `hcl:"port,optional"`
	LogLevel           string `hcl:"log_level,optional"`
	SettingsFile       string `hcl:"settings_file,optional"`
	ReconnectGraceSecs int    `hcl:"reconnect_grace_seconds,optional"`
}

// AdminSettings contains the admin plane listener configuration.
type AdminSettings struct {
	Address string `hcl:"address,optional"`
	Port    int    `hcl:"port,optional"`
	Token   string `hcl:"token,optional"`
}

// DBSettings locates the SQLite database.
type DBSettings struct {
	Path string `hcl:"path,optional"`
}

// PayPalSettings configures the payment provider. With Sandbox true and
// no credentials the server falls back to the in-memory fake, which is
// only suitable for development.
type PayPalSettings struct {
	BaseURL   string `hcl:"base_url,optional"`
	ClientID  string `hcl:"client_id,optional"`
	Secret    string `hcl:"secret,optional"`
	Currency  string `hcl:"currency,optional"`
	ReturnURL string `hcl:"return_url,optional"`
	CancelURL string `hcl:"cancel_url,optional"`
	Sandbox   bool   `hcl:"sandbox,optional"`
}

// TableConfig defines a cash table created at startup. Money amounts are
// in dollars.
type TableConfig struct {
	Name       string  `hcl:"name,label"`
	MaxPlayers int     `hcl:"max_players,optional"`
	SmallBlind float64 `hcl:"small_blind"`
	BigBlind   float64 `hcl:"big_blind"`
	BuyInMin   float64 `hcl:"buy_in_min,optional"`
	BuyInMax   float64 `hcl:"buy_in_max,optional"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:            "localhost",
			Port:               8080,
			LogLevel:           "info",
			SettingsFile:       "settings.json",
			ReconnectGraceSecs: 300,
		},
		Admin: AdminSettings{
			Address: "localhost",
			Port:    8081,
		},
		Database: DBSettings{
			Path: "cardroom.db",
		},
		PayPal: PayPalSettings{
			BaseURL:   "https://api-m.sandbox.paypal.com",
			Currency:  "USD",
			ReturnURL: "https://localhost/deposit/return",
			CancelURL: "https://localhost/deposit/cancel",
			Sandbox:   true,
		},
		Tables: []TableConfig{
			{
				Name:       "Low Stakes",
				MaxPlayers: 6,
				SmallBlind: 0.50,
				BigBlind:   1.00,
				BuyInMin:   50,
				BuyInMax:   500,
			},
			{
				Name:       "High Stakes",
				MaxPlayers: 6,
				SmallBlind: 5,
				BigBlind:   10,
				BuyInMin:   500,
				BuyInMax:   5000,
			},
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var cfg Config
	if fc.Server != nil {
		cfg.Server = *fc.Server
	}
	if fc.Admin != nil {
		cfg.Admin = *fc.Admin
	}
	if fc.Database != nil {
		cfg.Database = *fc.Database
	}
	if fc.PayPal != nil {
		cfg.PayPal = *fc.PayPal
	} else {
		// No paypal block means no credentials: the sandbox default,
		// not a zero value Validate would reject.
		cfg.PayPal = Default().PayPal
	}
	cfg.Tables = fc.Tables

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Server.SettingsFile == "" {
		c.Server.SettingsFile = def.Server.SettingsFile
	}
	if c.Server.ReconnectGraceSecs == 0 {
		c.Server.ReconnectGraceSecs = def.Server.ReconnectGraceSecs
	}
	if c.Admin.Address == "" {
		c.Admin.Address = def.Admin.Address
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = def.Admin.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.PayPal.BaseURL == "" {
		c.PayPal.BaseURL = def.PayPal.BaseURL
	}
	if c.PayPal.Currency == "" {
		c.PayPal.Currency = def.PayPal.Currency
	}
	if c.PayPal.ReturnURL == "" {
		c.PayPal.ReturnURL = def.PayPal.ReturnURL
	}
	if c.PayPal.CancelURL == "" {
		c.PayPal.CancelURL = def.PayPal.CancelURL
	}

	for i := range c.Tables {
		if c.Tables[i].MaxPlayers == 0 {
			c.Tables[i].MaxPlayers = 6
		}
		if c.Tables[i].BuyInMin == 0 {
			c.Tables[i].BuyInMin = c.Tables[i].BigBlind * 50
		}
		if c.Tables[i].BuyInMax == 0 {
			c.Tables[i].BuyInMax = c.Tables[i].BigBlind * 500
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Admin.Port < 1 || c.Admin.Port > 65535 {
		return fmt.Errorf("invalid admin port: %d", c.Admin.Port)
	}
	if c.Server.Port == c.Admin.Port {
		return fmt.Errorf("server and admin ports must differ")
	}
	if !c.PayPal.Sandbox && (c.PayPal.ClientID == "" || c.PayPal.Secret == "") {
		return fmt.Errorf("paypal credentials are required outside sandbox mode")
	}

	for _, table := range c.Tables {
		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if table.MaxPlayers < 2 || table.MaxPlayers > 10 {
			return fmt.Errorf("table %s: max players must be between 2 and 10", table.Name)
		}
		if table.BuyInMin >= table.BuyInMax {
			return fmt.Errorf("table %s: buy-in minimum must be less than maximum", table.Name)
		}
	}
	return nil
}

// ServerAddr returns the client listener address.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// AdminAddr returns the admin listener address.
func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Admin.Address, c.Admin.Port)
}
