// Package logger is a pterm-based event logger for PathFault: events
// tag the server whose rewrite they describe and the chain choice
// being explored.
package logger

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

type Logger struct {
	mu      sync.Mutex
	verbose bool
	debug   bool
}

var DefaultLogger *Logger

func init() {
	DefaultLogger = &Logger{
		verbose: false,
		debug:   false,
	}

	pterm.EnableDebugMessages()

	safeWriter := NewSafeWriter(os.Stdout)

	pterm.Info = *pterm.Info.WithWriter(safeWriter)
	pterm.Debug = *pterm.Debug.WithWriter(safeWriter)
	pterm.Error = *pterm.Error.WithWriter(safeWriter)
	pterm.Warning = *pterm.Warning.WithWriter(safeWriter)
	pterm.Success = *pterm.Success.WithWriter(safeWriter)
}

// Event is one in-flight log line: a printer plus the domain tags
// (Server, Choice) and free-form Metadata that get folded into the
// final formatted message on Msgf.
type Event struct {
	logger   *Logger
	printer  pterm.PrefixPrinter
	server   string
	choice   string
	metadata map[string]string
}

// SafeWriter serializes writes and normalizes line endings so
// concurrent enumeration workers never interleave a partial line.
type SafeWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSafeWriter(w io.Writer) *SafeWriter {
	return &SafeWriter{w: w}
}

func (sw *SafeWriter) Write(p []byte) (n int, err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	newP := make([]byte, 0, len(p)+2)
	newP = append(newP, '\r')
	newP = append(newP, p...)
	if !bytes.HasSuffix(newP, []byte("\n")) {
		newP = append(newP, '\n')
	}

	return sw.w.Write(newP)
}

func (l *Logger) newEvent(printer pterm.PrefixPrinter) *Event {
	return &Event{
		logger:   l,
		printer:  printer,
		metadata: make(map[string]string),
	}
}

func Info() *Event {
	return DefaultLogger.newEvent(pterm.Info)
}

func Success() *Event {
	return DefaultLogger.newEvent(pterm.Success)
}

func Error() *Event {
	return DefaultLogger.newEvent(pterm.Error)
}

func Warning() *Event {
	return DefaultLogger.newEvent(pterm.Warning)
}

func Debug() *Event {
	if !DefaultLogger.IsDebugEnabled() {
		return nil
	}
	return DefaultLogger.newEvent(pterm.Debug)
}

func Verbose() *Event {
	if !DefaultLogger.verbose {
		return nil
	}
	return DefaultLogger.newEvent(pterm.Info)
}

func (e *Event) Msgf(format string, args ...any) {
	if e == nil {
		return
	}

	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()

	var meta string
	for k, v := range e.metadata {
		meta += " " + pterm.Bold.Sprint(k) + "=" + v
	}

	var serverStr string
	if e.server != "" {
		serverStr = pterm.FgCyan.Sprintf("[%s] ", e.server)
	}

	var choiceStr string
	if e.choice != "" {
		choiceStr = pterm.FgYellow.Sprintf("[%s] ", e.choice)
	}

	message := serverStr + choiceStr + format + meta
	e.printer.Printfln(message, args...)
}

// Server tags the event with the server name whose rewrite or
// condition the message concerns.
func (e *Event) Server(name string) *Event {
	if e == nil {
		return nil
	}
	e.server = name
	return e
}

// Choice tags the event with a short identifier for the chain choice
// being explored -- the enumerator's serialized ChainChoice digest, or
// any caller-chosen label.
func (e *Event) Choice(id string) *Event {
	if e == nil {
		return nil
	}
	e.choice = id
	return e
}

func (e *Event) Metadata(key, value string) *Event {
	if e == nil {
		return nil
	}
	e.metadata[key] = value
	return e
}

func (l *Logger) EnableDebug() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = true
}

func (l *Logger) EnableVerbose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = true
}

func (l *Logger) IsDebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *Logger) IsVerboseEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

func IsDebugEnabled() bool {
	return DefaultLogger.IsDebugEnabled()
}

func IsVerboseEnabled() bool {
	return DefaultLogger.IsVerboseEnabled()
}

func EnableDebug() {
	DefaultLogger.EnableDebug()
}

func EnableVerbose() {
	DefaultLogger.EnableVerbose()
}

// PrintRunHeader prints a specially formatted header for a new
// enumeration run: a labeled run identifier, a candidate-count badge,
// and the target chain being explored.
func PrintRunHeader(runID string, candidateCount int, chainDescription string) {
	DefaultLogger.mu.Lock()
	defer DefaultLogger.mu.Unlock()

	runText := pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprintf(" %s ", runID)
	countText := pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprintf(" %d CANDIDATES ", candidateCount)
	chainText := pterm.FgYellow.Sprintf("%s", chainDescription)

	message := runText + " " + countText + " Exploring " + chainText + "\n"

	pterm.Println(message)

	os.Stdout.Sync()
}
