package delivery

import (
	"errors"
	"net/http"
	"sync"
)

// Logger provides minimal logging required by the delivery module.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DeliveryDeps groups external dependencies needed by the delivery module.
type DeliveryDeps struct {
	Logger     Logger
	Config     DeliveryConfig
	HTTPClient *http.Client

	mu     sync.Mutex
	module *moduleState
}

// Validate ensures required dependencies are provided.
func (d *DeliveryDeps) Validate() error {
	if d.Logger == nil {
		return errors.New("delivery deps: Logger is required")
	}
	if err := d.Config.Validate(); err != nil {
		return err
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: d.Config.HTTPTimeout}
	}
	return nil
}
