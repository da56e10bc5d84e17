// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wiring

import (
	"fmt"
	"log/slog"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/storage"
	"github.com/absmach/mqttsn/storage/badger"
	"github.com/absmach/mqttsn/storage/memory"
)

// OpenAddressTable opens the configured address table. Closing the table
// releases the underlying store.
func OpenAddressTable(cfg config.StorageConfig, logger *slog.Logger) (storage.AddressTable, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "memory":
		logger.Info("Using in-memory address table")
		return memory.New(), nil
	case "badger":
		s, err := badger.New(badger.Config{Dir: cfg.BadgerDir})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		logger.Info("Using BadgerDB address table", "dir", cfg.BadgerDir)
		return s.Addresses(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
