// Package log builds the process-wide logrus logger from configuration.
package log

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/config"
)

// Standard field names shared by every component.
const (
	FieldComponent  = "component"
	FieldTenantID   = "tenant_id"
	FieldBusinessID = "business_id"
	FieldEventType  = "event_type"
	FieldPartition  = "partition"
	FieldTemplateID = "template_id"
	FieldConsentID  = "consent_id"
	FieldHandleID   = "consent_handle_id"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// New creates a logger configured from the logging section.
func New(cfg config.LoggingConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// Init installs the process logger. Only the first call has an effect.
func Init(cfg config.LoggingConfig) *logrus.Logger {
	once.Do(func() {
		logger = New(cfg)
	})
	return logger
}

// Component returns an entry tagged with the component name.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField(FieldComponent, name)
}
