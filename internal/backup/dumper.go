package backup

import (
	"fmt"
	"path/filepath"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
)

// Dumper builds the external dump command for one engine.
type Dumper interface {
	Command(db models.Database, outputDir string) (string, []string)
}

type mongoDumper struct {
	binary string
}

// NewMongoDumper returns a Dumper that runs mongodump with gzip output.
func NewMongoDumper(binary string) Dumper {
	if binary == "" {
		binary = "mongodump"
	}
	return mongoDumper{binary: binary}
}

func (d mongoDumper) Command(db models.Database, outputDir string) (string, []string) {
	return d.binary, []string{
		"--out", outputDir,
		"--gzip",
		"--authenticationDatabase", db.AuthDatabase(),
		"--db", db.Name,
		"--uri", db.ConnectionString,
	}
}

type postgresDumper struct {
	binary string
}

// NewPostgresDumper returns a Dumper that runs pg_dump in compressed
// directory format. The dump lands in a subdirectory named after the
// database, mirroring the mongodump layout.
func NewPostgresDumper(binary string) Dumper {
	if binary == "" {
		binary = "pg_dump"
	}
	return postgresDumper{binary: binary}
}

func (d postgresDumper) Command(db models.Database, outputDir string) (string, []string) {
	return d.binary, []string{
		fmt.Sprintf("--dbname=%s", db.ConnectionString),
		fmt.Sprintf("--file=%s", filepath.Join(outputDir, db.Name)),
		"--format=directory",
		"--compress=6",
		"--no-password",
	}
}
