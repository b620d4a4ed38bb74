package storedb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/IvyMycelia/myco/value"
)

// Table is one named, ordered collection of records - each record an
// arbitrary value.Value, typically an Object representing a row.
type Table struct {
	Name    string
	Records []value.Value
}

// DB is the in-memory image of a MYCO file: a fixed format version plus an
// ordered list of tables, named so the `database` stdlib module can look
// one up by name (`database.all(db, "users")`).
type DB struct {
	Tables []*Table
}

// Table returns the named table, creating an empty one if it doesn't exist
// yet - matching the teacher's "declare on first use" convention seen in
// compiler.Compiler.addConstant/addName.
func (db *DB) Table(name string) *Table {
	for _, t := range db.Tables {
		if t.Name == name {
			return t
		}
	}
	t := &Table{Name: name}
	db.Tables = append(db.Tables, t)
	return t
}

// Open reads a MYCO file from disk. A missing file is not an error - it
// yields an empty DB, the same "create on first write" convenience SQLite's
// file-backed drivers give callers.
func Open(path string) (*DB, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &DB{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("storedb: reading magic: %w", err)
	}
	if string(hdr[:]) != magic {
		return nil, fmt.Errorf("storedb: %s is not a MYCO database file", path)
	}
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("storedb: reading version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("storedb: unsupported format version %d", version)
	}

	var tableCount uint32
	if err := binary.Read(r, binary.BigEndian, &tableCount); err != nil {
		return nil, fmt.Errorf("storedb: reading table count: %w", err)
	}
	db := &DB{}
	for i := uint32(0); i < tableCount; i++ {
		nameBytes, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("storedb: reading table name: %w", err)
		}
		var recordCount uint32
		if err := binary.Read(r, binary.BigEndian, &recordCount); err != nil {
			return nil, fmt.Errorf("storedb: reading record count: %w", err)
		}
		t := &Table{Name: string(nameBytes)}
		for j := uint32(0); j < recordCount; j++ {
			v, err := readValue(r)
			if err != nil {
				return nil, fmt.Errorf("storedb: reading record %d of table %s: %w", j, t.Name, err)
			}
			t.Records = append(t.Records, v)
		}
		db.Tables = append(db.Tables, t)
	}
	return db, nil
}

// Save writes the DB back out in full - storedb has no incremental append
// mode; every write rewrites the whole file, matching spec §6's framing of
// persistence as entirely outside the core interpreter's hot path.
func (db *DB) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(db.Tables))); err != nil {
		return err
	}
	for _, t := range db.Tables {
		if err := writeBytes(w, []byte(t.Name)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(t.Records))); err != nil {
			return err
		}
		for _, rec := range t.Records {
			if err := writeValue(w, rec); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
