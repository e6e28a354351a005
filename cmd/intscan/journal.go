package main

import (
	"io"

	"github.com/coreos/go-systemd/journal"
	plog "github.com/phuslu/log"
)

// journalWriter writes log entries to the systemd journal at the priority
// matching the entry level and falls back to Fallback if sending fails.
type journalWriter struct {
	Fallback io.Writer
}

func (j journalWriter) WriteEntry(e *plog.Entry) (int, error) {
	return plog.IOWriter{Writer: journalSender{
		Priority: journalPriority(e.Level),
		Fallback: j.Fallback,
	}}.WriteEntry(e)
}

type journalSender struct {
	Priority journal.Priority
	Fallback io.Writer
}

func (s journalSender) Write(b []byte) (int, error) {
	if err := journal.Send(string(b), s.Priority, nil); err != nil {
		return s.Fallback.Write(b)
	}
	return len(b), nil
}

func journalPriority(l plog.Level) journal.Priority {
	switch l {
	case plog.TraceLevel, plog.DebugLevel:
		return journal.PriDebug
	case plog.InfoLevel:
		return journal.PriInfo
	case plog.WarnLevel:
		return journal.PriWarning
	case plog.ErrorLevel:
		return journal.PriErr
	case plog.FatalLevel:
		return journal.PriCrit
	case plog.PanicLevel:
		return journal.PriEmerg
	}
	return journal.PriNotice
}

// logWriter returns a writer logging to the systemd journal
// when it's available and to w otherwise.
func logWriter(w io.Writer) plog.Writer {
	if journal.Enabled() {
		return journalWriter{Fallback: w}
	}
	return &plog.IOWriter{Writer: w}
}
