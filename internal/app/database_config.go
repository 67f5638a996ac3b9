package app

import (
	"strings"

	"github.com/charlesng35/accounthub/internal/database"
)

// ConnectionConfig converts the database section into database.Config. Host
// based settings are taken from the block matching the driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var auth *DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		auth = &c.Postgres
	case "mysql", "mariadb":
		auth = &c.MySQL
	}
	if auth != nil {
		cfg.Host = auth.Host
		cfg.Port = auth.Port
		cfg.Name = auth.Database
		cfg.User = auth.Username
		cfg.Password = auth.Password
		cfg.Options = auth.Options
	}
	return cfg
}
