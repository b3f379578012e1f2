package cfg

import (
	"flag"
	"strconv"
	"time"
)

// Seconds returns a flag.Value that stores into p a duration given either as
// a bare number of seconds ("300") or as a Go duration ("5m", "500ms").
func Seconds(p *time.Duration) flag.Value {
	return seconds{p}
}

type seconds struct{ d *time.Duration }

func (s seconds) String() string {
	if s.d == nil {
		return ""
	}
	return s.d.String()
}

func (s seconds) Set(v string) error {
	if n, err := strconv.Atoi(v); err == nil {
		*s.d = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*s.d = d
	return nil
}
