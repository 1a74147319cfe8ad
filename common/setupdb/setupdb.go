// Package setupdb is the inventory of the test setups: which nodes make up a
// setup and whether a test run is using it.
package setupdb

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"time"

	"cortx-e2e/common/cterror"

	"github.com/google/renameio"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type NodeEntry struct {
	Host     string `json:"host" bson:"host"`
	Hostname string `json:"hostname" bson:"hostname"`
	Username string `json:"username" bson:"username"`
	Password string `json:"password,omitempty" bson:"password,omitempty"`
	Master   bool   `json:"master" bson:"master"`
}

type SetupEntry struct {
	SetupName string      `json:"setupname" bson:"setupname"`
	SetupType string      `json:"setup_type" bson:"setup_type"`
	Nodes     []NodeEntry `json:"nodes" bson:"nodes"`
	InUse     bool        `json:"in_use" bson:"in_use"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// Store keeps the setup entries in a mongo collection, one document per setup name.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" {
		return nil, cterror.NewException(cterror.InvalidConfig, "setup inventory uri not specified")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, cterror.WrapException(err, cterror.SetupDBError, "connecting")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, cterror.WrapException(err, cterror.SetupDBError, "ping")
	}
	logf.Log.Info("Connected to setup inventory", "database", database, "collection", collection)
	return &Store{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func nameFilter(name string) bson.M {
	return bson.M{"setupname": name}
}

// Upsert replaces the entry with the same setup name, or inserts it.
func (s *Store) Upsert(ctx context.Context, e SetupEntry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	_, err := s.coll.ReplaceOne(ctx, nameFilter(e.SetupName), e, options.Replace().SetUpsert(true))
	if err != nil {
		return cterror.WrapException(err, cterror.SetupDBError, "upsert %s", e.SetupName)
	}
	logf.Log.Info("Setup registered", "setup", e.SetupName, "nodes", len(e.Nodes))
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (SetupEntry, error) {
	var e SetupEntry
	err := s.coll.FindOne(ctx, nameFilter(name)).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return e, cterror.NewException(cterror.SetupNotFound, "%s", name)
	}
	if err != nil {
		return e, cterror.WrapException(err, cterror.SetupDBError, "get %s", name)
	}
	return e, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, nameFilter(name))
	if err != nil {
		return cterror.WrapException(err, cterror.SetupDBError, "delete %s", name)
	}
	if res.DeletedCount == 0 {
		return cterror.NewException(cterror.SetupNotFound, "%s", name)
	}
	return nil
}

// ListFree returns the setups of setupType not in use, any type when setupType is empty.
func (s *Store) ListFree(ctx context.Context, setupType string) ([]SetupEntry, error) {
	filter := bson.M{"in_use": false}
	if setupType != "" {
		filter["setup_type"] = setupType
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "setupname", Value: 1}}))
	if err != nil {
		return nil, cterror.WrapException(err, cterror.SetupDBError, "list free setups")
	}
	var entries []SetupEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, cterror.WrapException(err, cterror.SetupDBError, "list free setups")
	}
	return entries, nil
}

// SetInUse flips the in use flag of name, failing if it already has that value.
func (s *Store) SetInUse(ctx context.Context, name string, inUse bool) error {
	filter := bson.M{"setupname": name, "in_use": !inUse}
	update := bson.M{"$set": bson.M{"in_use": inUse, "updated_at": time.Now().UTC()}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return cterror.WrapException(err, cterror.SetupDBError, "update %s", name)
	}
	if res.MatchedCount == 0 {
		return cterror.NewException(cterror.SetupNotFound, "%s with in_use %v", name, !inUse)
	}
	return nil
}

func ReadEntryFile(path string) (SetupEntry, error) {
	var e SetupEntry
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return e, cterror.WrapException(err, cterror.MissingFile, "%s", path)
	}
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, cterror.WrapException(err, cterror.ParseError, "setup entry %s", path)
	}
	return e, nil
}

func WriteEntryFile(path string, e SetupEntry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}

// MasterNode returns the node flagged master, or the first one.
func (e SetupEntry) MasterNode() (NodeEntry, bool) {
	for _, n := range e.Nodes {
		if n.Master {
			return n, true
		}
	}
	if len(e.Nodes) != 0 {
		return e.Nodes[0], true
	}
	return NodeEntry{}, false
}
