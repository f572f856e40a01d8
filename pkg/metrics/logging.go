package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// NewRelicLogFormatter wraps a logrus.Formatter and forwards every entry to
// New Relic, including its fields, linked to the transaction in the entry's
// context when there is one.
type NewRelicLogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewCustomNewRelicLogFormatter(app *newrelic.Application, formatter logrus.Formatter) NewRelicLogFormatter {
	return NewRelicLogFormatter{
		app:       app,
		formatter: formatter,
	}
}

// Format implements logrus.Formatter.Format
func (f NewRelicLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	formatted, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	if f.app == nil {
		return formatted, nil
	}

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  summarize(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	b := bytes.NewBuffer(bytes.TrimRight(formatted, "\n"))
	if txn != nil {
		txn.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// summarize folds the entry's fields into the forwarded message, since New
// Relic log records only carry a message and severity.
func summarize(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "message=%q", e.Message)

	if err, ok := e.Data[logrus.ErrorKey].(error); ok {
		fmt.Fprintf(&sb, ", error=%q", err.Error())
	}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != logrus.ErrorKey {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return sb.String()
	}
	sort.Strings(keys)

	fields := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		fields[k] = e.Data[k]
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, ", data=%s", encoded)
	return sb.String()
}
