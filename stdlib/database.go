package stdlib

import (
	"github.com/IvyMycelia/myco/stdlib/storedb"
	"github.com/IvyMycelia/myco/value"
)

// dbValue wraps a *storedb.DB so it can travel through the environment like
// any other Value - the `database` module's open() returns one of these,
// and every other database.* function takes one back as its first argument.
type dbValue struct {
	db   *storedb.DB
	path string
}

const dbHandleType value.ValueType = "database"

func (d *dbValue) Type() value.ValueType { return dbHandleType }
func (d *dbValue) String() string        { return "<database " + d.path + ">" }

// databaseLib builds the `database` module over stdlib/storedb's MYCO
// binary table format (spec §6). Table rows are plain Objects; insert
// appends one, all() returns every row as an array, save() flushes the
// whole file back to disk - storedb has no incremental append mode, so
// every save() call rewrites it in full.
func databaseLib() *value.Module {
	exports := value.NewObject()

	exports.Set("open", hostFn("database.open", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("database.open", 1, len(args), line, col)
		}
		path, ok := args[0].(value.String)
		if !ok {
			return nil, wrongType("database.open", "string path", line, col)
		}
		db, err := storedb.Open(path.Value)
		if err != nil {
			return nil, value.NewRuntimeError(value.InternalError, line, col, err.Error())
		}
		return &dbValue{db: db, path: path.Value}, nil
	}))

	exports.Set("insert", hostFn("database.insert", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 3 {
			return nil, wrongArgCount("database.insert", 3, len(args), line, col)
		}
		d, ok := args[0].(*dbValue)
		if !ok {
			return nil, wrongType("database.insert", "database handle", line, col)
		}
		tableName, ok := args[1].(value.String)
		if !ok {
			return nil, wrongType("database.insert", "string table name", line, col)
		}
		table := d.db.Table(tableName.Value)
		table.Records = append(table.Records, value.Clone(args[2]))
		return value.NullValue, nil
	}))

	exports.Set("all", hostFn("database.all", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("database.all", 2, len(args), line, col)
		}
		d, ok := args[0].(*dbValue)
		if !ok {
			return nil, wrongType("database.all", "database handle", line, col)
		}
		tableName, ok := args[1].(value.String)
		if !ok {
			return nil, wrongType("database.all", "string table name", line, col)
		}
		table := d.db.Table(tableName.Value)
		out := make([]value.Value, len(table.Records))
		copy(out, table.Records)
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("save", hostFn("database.save", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("database.save", 1, len(args), line, col)
		}
		d, ok := args[0].(*dbValue)
		if !ok {
			return nil, wrongType("database.save", "database handle", line, col)
		}
		if err := d.db.Save(d.path); err != nil {
			return nil, value.NewRuntimeError(value.InternalError, line, col, err.Error())
		}
		return value.NullValue, nil
	}))

	return &value.Module{Name: "database", Exports: exports}
}
