package config

import (
	"github.com/alapierre/go-etims-receipts/etims/util"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.config")

// ConfigureLogging applies log.level and log.format to the global logrus logger.
// ETIMS_DEBUG=true forces debug level.
func (c LogConfig) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if util.DebugEnabled() && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if c.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
