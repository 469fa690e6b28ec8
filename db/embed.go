// Package db ships the goose migrations with the binaries.
package db

import "embed"

// Migrations holds every file under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
