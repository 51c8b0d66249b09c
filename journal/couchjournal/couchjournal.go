// Package couchjournal is a journal.Journal backed by CouchDB, one
// document per event.
package couchjournal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "github.com/go-kivik/couchdb/v3"
	"github.com/go-kivik/kivik/v3"
	"github.com/joho/godotenv"

	"github.com/jt05610/petriengine/journal"
)

// Config holds the CouchDB connection parameters.
type Config struct {
	User    string
	Pass    string
	Address string
	Port    string
}

func (c *Config) URI() string {
	return "http://" + c.User + ":" + c.Pass + "@" + c.Address + ":" + c.Port
}

func lookupKey(key string, into *string) {
	value, ok := os.LookupEnv(key)
	if !ok {
		panic("missing env var: " + key)
	}
	*into = value
}

// LoadConfig loads COUCHDB_USER, COUCHDB_PASSWORD, COUCHDB_HOST, and
// COUCHDB_PORT from envFile (or the process environment).
func LoadConfig(envFile ...string) *Config {
	var config Config
	err := godotenv.Load(envFile...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
	keys := []struct {
		key  string
		into *string
	}{
		{"COUCHDB_USER", &config.User},
		{"COUCHDB_PASSWORD", &config.Pass},
		{"COUCHDB_HOST", &config.Address},
		{"COUCHDB_PORT", &config.Port},
	}
	for _, k := range keys {
		lookupKey(k.key, k.into)
	}
	return &config
}

// Decoder turns a stored Kind and its raw JSON payload back into the
// engine's concrete event type. couchjournal stores events as opaque
// JSON documents; it has no notion of the event types upstream of
// journal.Journal, so Replay relies on a Decoder supplied by the
// caller that does.
type Decoder func(kind string, raw json.RawMessage) (interface{}, error)

type doc struct {
	ID         string          `json:"_id"`
	Rev        string          `json:"_rev,omitempty"`
	InstanceID string          `json:"instance_id"`
	SequenceNo int64           `json:"sequence_no"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// Journal stores each appended event as its own CouchDB document,
// keyed so that a range scan over _id also orders by sequence_no
// within an instance.
type Journal struct {
	db     *kivik.DB
	decode Decoder
}

var _ journal.Journal = (*Journal)(nil)

// Open creates the named database if it does not already exist and
// returns a Journal over it. decode may be nil, in which case Replay
// yields raw json.RawMessage payloads.
func Open(uri, name string, decode Decoder) (*Journal, error) {
	client, err := kivik.New("couch", uri)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	dbs, err := client.AllDBs(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, name2 := range dbs {
		if name2 == name {
			found = true
			break
		}
	}
	if !found {
		if err := client.CreateDB(ctx, name); err != nil {
			return nil, err
		}
	}
	return &Journal{db: client.DB(ctx, name), decode: decode}, nil
}

func docID(instanceID string, seq int64) string {
	return fmt.Sprintf("%s:%020d", instanceID, seq)
}

// Append puts one document per event. CouchDB's per-document put is
// not a multi-document transaction, so a batch that fails partway
// leaves earlier documents in place — callers that need atomicity
// across a batch should journal events one at a time.
func (j *Journal) Append(ctx context.Context, instanceID string, events []journal.Record) (journal.Ack, error) {
	if len(events) == 0 {
		return journal.Ack{}, nil
	}
	first := events[0].SequenceNo
	for _, rec := range events {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return journal.Ack{}, fmt.Errorf("couchjournal: marshal payload: %w", err)
		}
		d := doc{
			ID:         docID(instanceID, rec.SequenceNo),
			InstanceID: instanceID,
			SequenceNo: rec.SequenceNo,
			Kind:       rec.Kind,
			Payload:    payload,
		}
		if _, err := j.db.Put(ctx, d.ID, d); err != nil {
			return journal.Ack{}, fmt.Errorf("couchjournal: put %s: %w", d.ID, err)
		}
	}
	return journal.Ack{FirstSequenceNo: first, Count: len(events)}, nil
}

// Replay finds every document for instanceID ordered by sequence_no
// and decodes each payload.
func (j *Journal) Replay(ctx context.Context, instanceID string) (<-chan journal.Record, <-chan error) {
	out := make(chan journal.Record)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		rows, err := j.db.Find(ctx, map[string]interface{}{
			"selector": map[string]interface{}{"instance_id": instanceID},
			"sort":     []map[string]string{{"sequence_no": "asc"}},
		}, kivik.Options{})
		if err != nil {
			errCh <- fmt.Errorf("couchjournal: find: %w", err)
			return
		}
		for rows.Next() {
			var d doc
			if err := rows.ScanDoc(&d); err != nil {
				errCh <- fmt.Errorf("couchjournal: scan: %w", err)
				return
			}
			var payload interface{} = d.Payload
			if j.decode != nil {
				decoded, err := j.decode(d.Kind, d.Payload)
				if err != nil {
					errCh <- fmt.Errorf("couchjournal: decode %s: %w", d.Kind, err)
					return
				}
				payload = decoded
			}
			rec := journal.Record{InstanceID: instanceID, SequenceNo: d.SequenceNo, Kind: d.Kind, Payload: payload}
			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- fmt.Errorf("couchjournal: rows: %w", err)
		}
	}()
	return out, errCh
}
