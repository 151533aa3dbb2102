package main

import (
	"log"
	"log/syslog"

	"github.com/dumacp/go-logs/pkg/logs"
)

const syslogTag = "go-a9g"

func newLog(logger *logs.Logger, prefix string, flags int, priority int) error {

	logg, err := syslog.NewLogger(syslog.Priority(priority)|syslog.LOG_DAEMON, flags)
	if err != nil {
		return err
	}
	logg.SetPrefix(prefix)
	logger.SetLogError(logg)
	return nil
}

func initLogs(debug, logStd bool) {
	defer func() {
		if !debug {
			logs.LogBuild.Disable()
		}
	}()
	if logStd {
		return
	}
	for _, l := range []struct {
		logger   *logs.Logger
		prefix   string
		priority syslog.Priority
	}{
		{logs.LogInfo, "[ info ] ", syslog.LOG_INFO},
		{logs.LogWarn, "[ warn ] ", syslog.LOG_WARNING},
		{logs.LogError, "[ error ] ", syslog.LOG_ERR},
		{logs.LogBuild, "[ build ] ", syslog.LOG_DEBUG},
	} {
		if err := newLog(l.logger, syslogTag+" "+l.prefix, log.LstdFlags, int(l.priority)); err != nil {
			log.Printf("syslog %s: %s", l.prefix, err)
		}
	}
}
