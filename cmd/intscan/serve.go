package main

import (
	"io"
	"net"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/graph-guard/intscan/pkg/cli"
	"github.com/graph-guard/intscan/pkg/server"
	"github.com/phuslu/log"
)

// serve turns the CLI process into an intscan server process.
func serve(w io.Writer, c cli.CommandServe) (ok bool) {
	conf := ReadConfig(w, c.ConfigDirPath)
	if conf == nil {
		return false
	}
	if c.JWTSecret != "" {
		conf.API.JWTSecret = c.JWTSecret
	}

	l := log.Logger{
		Level:  log.InfoLevel,
		Writer: logWriter(w),
	}

	var s *server.Server
	{
		lServer := l
		lServer.Context = log.NewContext(nil).
			Str("server", "intscan").Value()
		var err error
		if s, err = server.New(conf, lServer); err != nil {
			l.Error().Err(err).Msg("creating server")
			return false
		}
	}

	ln, err := net.Listen("tcp", conf.Host)
	if err != nil {
		l.Error().Err(err).Str("host", conf.Host).Msg("listening")
		return false
	}

	// explicitStop must be closed to trigger an explicit stop.
	explicitStop := make(chan struct{})
	stopTriggered := RegisterStop(explicitStop)

	start := time.Now()
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		l.Warn().Err(err).Msg("notifying systemd")
	} else if sent {
		l.Debug().Msg("notified systemd")
	}

	go func() {
		<-stopTriggered
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		_ = s.Shutdown()
	}()

	err = s.Serve(ln)
	close(explicitStop)
	if err != nil {
		l.Error().Err(err).Msg("serving")
		return false
	}
	l.Info().Dur("uptime", time.Since(start)).Msg("stopped")
	return true
}
