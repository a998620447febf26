package mongostore

import (
	"github.com/kadirbelkuyu/dbsaver/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type databaseDocument struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Name                   string             `bson:"name"`
	CustomName             string             `bson:"custom_name"`
	Engine                 string             `bson:"engine,omitempty"`
	ConnectionString       string             `bson:"connection_string"`
	AuthenticationDatabase string             `bson:"authentication_database,omitempty"`
	Status                 string             `bson:"status"`
	Collections            []string           `bson:"collections"`
	Message                string             `bson:"message"`
	LastSave               *int64             `bson:"last_save,omitempty"`
}

func (d databaseDocument) toModel() models.Database {
	collections := d.Collections
	if collections == nil {
		collections = []string{}
	}
	return models.Database{
		ID:                     d.ID.Hex(),
		Name:                   d.Name,
		CustomName:             d.CustomName,
		Engine:                 models.NormalizeEngine(d.Engine),
		ConnectionString:       d.ConnectionString,
		AuthenticationDatabase: d.AuthenticationDatabase,
		Status:                 models.Status(d.Status),
		Collections:            collections,
		Message:                d.Message,
		LastSave:               d.LastSave,
	}
}

type snapshotDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DatabaseID primitive.ObjectID `bson:"db_id"`
	Time       int64              `bson:"time"`
	Manual     bool               `bson:"manual"`
}

func (d snapshotDocument) toModel() models.Snapshot {
	return models.Snapshot{
		ID:         d.ID.Hex(),
		DatabaseID: d.DatabaseID.Hex(),
		Timestamp:  d.Time,
		Manual:     d.Manual,
	}
}
