package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	msgs   []string
	fields [][]Field
}

func (c *captureLogger) record(msg string, fields []Field) {
	c.msgs = append(c.msgs, msg)
	c.fields = append(c.fields, fields)
}

func (c *captureLogger) Debug(msg string, fields ...Field) { c.record(msg, fields) }
func (c *captureLogger) Info(msg string, fields ...Field)  { c.record(msg, fields) }
func (c *captureLogger) Warn(msg string, fields ...Field)  { c.record(msg, fields) }
func (c *captureLogger) Error(msg string, fields ...Field) { c.record(msg, fields) }

func TestWithPrependsFields(t *testing.T) {
	as := assert.New(t)
	inner := &captureLogger{}

	l := With(With(inner, String("component", "receiver")), Int("stream", 2))
	l.Info("delivered", Bool("ok", true))

	as.Equal([]string{"delivered"}, inner.msgs)
	as.Equal([]Field{
		String("component", "receiver"),
		Int("stream", 2),
		Bool("ok", true),
	}, inner.fields[0])
}

func TestWithNoFieldsReturnsSameLogger(t *testing.T) {
	inner := &captureLogger{}
	assert.Same(t, inner, With(inner))
}

func TestZerologAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Error("append failed", String("collection", "messagebus"), Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, `"collection":"messagebus"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"message":"append failed"`)
}

func TestZerologAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewConsoleAdapter(&buf, zerolog.WarnLevel)

	z.Debug("hidden")
	z.Info("hidden")
	assert.Empty(t, buf.String())

	z.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
