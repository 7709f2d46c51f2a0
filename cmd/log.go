package cmd

import (
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/sirupsen/logrus"
)

// runHook tags every log entry with a name generated once per process,
// handy when sender and listener logs of a test are merged.
type runHook struct {
	name string
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.AddHook(&runHook{name: petname.Generate(2, "-")})
	return nil
}

func (h *runHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *runHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["run"]; !ok {
		entry.Data["run"] = h.name
	}
	return nil
}
