package models

import "strings"

// Status is the connection state of a monitored database.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const (
	EngineMongo    = "mongo"
	EnginePostgres = "postgres"
)

// DefaultAuthenticationDatabase is used when a record carries no authentication database.
const DefaultAuthenticationDatabase = "admin"

// Database is the tracked metadata of one externally hosted database.
type Database struct {
	ID                     string   `json:"_id"`
	Name                   string   `json:"name"`
	CustomName             string   `json:"custom_name"`
	Engine                 string   `json:"engine"`
	ConnectionString       string   `json:"connection_string"`
	AuthenticationDatabase string   `json:"authentication_database"`
	Status                 Status   `json:"status"`
	Collections            []string `json:"collections"`
	Message                string   `json:"message"`
	LastSave               *int64   `json:"last_save,omitempty"`
	SnapshotCount          int64    `json:"snapshot_count"`
}

// Label returns the user-facing name, falling back to the remote name.
func (d Database) Label() string {
	if strings.TrimSpace(d.CustomName) != "" {
		return d.CustomName
	}
	return d.Name
}

// AuthDatabase returns the authentication database passed to the dump tool.
func (d Database) AuthDatabase() string {
	if strings.TrimSpace(d.AuthenticationDatabase) == "" {
		return DefaultAuthenticationDatabase
	}
	return d.AuthenticationDatabase
}

// EngineName normalizes the engine, defaulting to mongo.
func (d Database) EngineName() string {
	return NormalizeEngine(d.Engine)
}

// NormalizeEngine maps user supplied engine names onto the supported set.
func NormalizeEngine(engine string) string {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "mongo", "mongodb":
		return EngineMongo
	case "postgres", "postgresql":
		return EnginePostgres
	default:
		return strings.ToLower(strings.TrimSpace(engine))
	}
}

// DatabaseInput carries the user editable fields of a Database.
type DatabaseInput struct {
	Name                   string `json:"name"`
	CustomName             string `json:"custom_name"`
	Engine                 string `json:"engine"`
	ConnectionString       string `json:"connection_string"`
	AuthenticationDatabase string `json:"authentication_database"`
}
