package cli

import (
	"errors"
	"fmt"

	"github.com/hashward/hdsl/internal/interp"
	"github.com/hashward/hdsl/internal/scan"
	"github.com/hashward/hdsl/internal/store"
)

// engine bundles the store, scanner and interpreter a command runs against.
type engine struct {
	store   *store.Store
	scanner *scan.Runner
	interp  *interp.Interpreter
}

// openEngine opens the configured database and wires an interpreter to it.
func openEngine() (*engine, error) {
	c := getConfig()
	dbPath, err := c.DatabasePath()
	if err != nil {
		return nil, handleError(ErrConfigInvalid, err, "")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		if errors.Is(err, store.ErrSchemaVersion) {
			return nil, handleError(ErrDatabaseVersion, err, "Upgrade hdsl to read this database")
		}
		return nil, handleError(ErrDatabaseError, err, "Check --db or the database setting in the config file")
	}

	allow, err := c.AllowList()
	if err != nil {
		st.Close()
		return nil, handleError(ErrConfigInvalid, fmt.Errorf("invalid allow list: %w", err), "Run 'hdsl docs tokens' for token names")
	}

	log := getLogger()
	runner := scan.New(st, scan.Options{Logger: log, Workers: c.Scan.Workers})
	in, err := interp.New(interp.Options{
		Data:    st,
		Scanner: runner,
		Allow:   allow,
		Logger:  log,
	})
	if err != nil {
		st.Close()
		return nil, handleError(ErrInternal, err, "")
	}
	return &engine{store: st, scanner: runner, interp: in}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}
