/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/jt05610/petriengine/instance"
	"github.com/jt05610/petriengine/journal"
	"github.com/jt05610/petriengine/journal/couchjournal"
	"github.com/jt05610/petriengine/journal/memjournal"
)

// openJournal picks a journal.Journal backend for the given named
// database/collection based on JOURNAL_BACKEND ("memory", the default,
// or "couchdb"). couchdb connects using the same COUCHDB_USER,
// COUCHDB_PASSWORD, COUCHDB_HOST, COUCHDB_PORT keys couchjournal.LoadConfig
// reads.
func openJournal(name string) (journal.Journal, error) {
	backend, _ := os.LookupEnv("JOURNAL_BACKEND")
	switch backend {
	case "", "memory":
		return memjournal.New(), nil
	case "couchdb":
		config := couchjournal.LoadConfig()
		j, err := couchjournal.Open(config.URI(), name, instance.DecodeEvent)
		if err != nil {
			return nil, fmt.Errorf("open couchdb journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown JOURNAL_BACKEND %q (want \"memory\" or \"couchdb\")", backend)
	}
}
