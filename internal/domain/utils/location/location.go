package location

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	location *time.Location
	once     sync.Once
)

// Location returns the troupe's time zone (settings.timezone), falling back
// to UTC when it is unset or unknown.
func Location() *time.Location {
	once.Do(func() {
		loc, err := time.LoadLocation(viper.GetString("settings.timezone"))
		if err != nil || viper.GetString("settings.timezone") == "" {
			loc = time.UTC
		}
		location = loc
	})
	return location
}
