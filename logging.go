package supergrab

import (
	"fmt"

	"github.com/ScottBrooks/supergrab/rollback"
	colorable "github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
)

// SetupLogging points the standard logger at a color capable stdout and
// sets its level by name.
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(colorable.NewColorableStdout())
	log.SetLevel(lvl)
	return nil
}

// LogEvents writes session events to the standard logger.
func LogEvents(events []rollback.Event) {
	for _, ev := range events {
		entry := log.WithFields(log.Fields{"event": ev.Kind.String(), "frame": ev.Frame})
		switch ev.Kind {
		case rollback.EventDesync:
			entry.Error(ev.String())
		case rollback.EventProtocolViolation:
			entry.Warn(ev.String())
		case rollback.EventRollback:
			entry.Debug(ev.String())
		default:
			entry.Info(ev.String())
		}
	}
}
