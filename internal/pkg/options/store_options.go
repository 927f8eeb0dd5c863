package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// StoreOptions selects the conversation store.
type StoreOptions struct {
	// Type is "memory", "boltdb" or "sqlite".
	Type string `json:"type" mapstructure:"type"`
	// Path is the database file of the boltdb and sqlite stores.
	Path string `json:"path" mapstructure:"path"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Type: "boltdb",
		Path: "data/warden.db",
	}
}

func (o *StoreOptions) Validate() []error {
	var errs []error
	switch o.Type {
	case "memory":
	case "boltdb", "sqlite":
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("--store.path is required for the %s store", o.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("--store.type %q must be memory, boltdb or sqlite", o.Type))
	}
	return errs
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Type, "store.type", o.Type, "Conversation store: memory, boltdb or sqlite.")
	fs.StringVar(&o.Path, "store.path", o.Path, "Database file of the boltdb and sqlite stores.")
}
