package kartrumble

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/getsentry/raven-go"
	"github.com/sirupsen/logrus"
)

const MaxLogSizeBytes = 1e6

// logOutput keeps the tail of the process log for debug bundles.
var logOutput = newLogBuffer(MaxLogSizeBytes)

// InitLogging sends logrus output to stdout and the in-memory log buffer.
func InitLogging(level string) error {
	logrus.SetOutput(io.MultiWriter(os.Stdout, logOutput))
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if level == "" {
		return nil
	}

	lvl, err := logrus.ParseLevel(level)

	if err != nil {
		return err
	}

	logrus.SetLevel(lvl)

	return nil
}

var sentryEnabled bool

// InitSentry enables error reporting when a DSN is configured.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}

	if err := raven.SetDSN(dsn); err != nil {
		return err
	}

	raven.SetRelease(release)
	sentryEnabled = true

	logrus.Infof("Sentry error reporting enabled")

	return nil
}

func captureError(err error, tags map[string]string) {
	if err == nil || !sentryEnabled {
		return
	}

	raven.CaptureError(err, tags)
}

func newLogBuffer(maxSize int) *logBuffer {
	return &logBuffer{
		size: maxSize,
		buf:  new(bytes.Buffer),
	}
}

type logBuffer struct {
	buf *bytes.Buffer

	size int

	mutex sync.Mutex
}

func (lb *logBuffer) Write(p []byte) (n int, err error) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	b := lb.buf.Bytes()

	if len(b) > lb.size {
		lb.buf = bytes.NewBuffer(b[len(b)-lb.size:])
	}

	return lb.buf.Write(p)
}

func (lb *logBuffer) String() string {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	return strings.Replace(lb.buf.String(), "\n\n", "\n", -1)
}
