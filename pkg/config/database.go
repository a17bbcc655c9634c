package config

import (
	"github.com/OldStager01/joyce/pkg/database"
)

func (s StoreConfig) ToDBConfig() database.Config {
	return database.Config{
		Driver:         s.Driver,
		DSN:            s.DSNString(),
		MaxConnections: s.MaxConnections,
	}
}
