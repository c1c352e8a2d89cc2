package core

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{ errors []string }

func (l *nopLogger) Debug(string, ...interface{}) {}
func (l *nopLogger) Info(string, ...interface{})  {}
func (l *nopLogger) Warn(string, ...interface{})  {}
func (l *nopLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

func TestParseEmailTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"email/_base.txt":      {Data: []byte(`Hi {{.Data.Name}}, {{template "content" .}} {{.FrontendBaseURL}}`)},
		"email/_base.gohtml":   {Data: []byte(`<p>{{template "content" .}}</p>`)},
		"email/welcome.txt":    {Data: []byte(`{{define "content"}}welcome!{{end}}`)},
		"email/welcome.gohtml": {Data: []byte(`{{define "content"}}<b>{{.Data.Name}}</b>{{end}}`)},
		"email/broken.txt":     {Data: []byte(`{{define "content"}}{{.Data.Name{{end}}`)},
	}
	logger := new(nopLogger)
	ParseEmailTemplates(fsys, "email", "http://assoc.test", true, logger)
	assert.Len(t, logger.errors, 1, "broken template is logged")

	msg := EmailMessage{TemplateName: "welcome", TemplateData: struct{ Name string }{"<Budi>"}}
	require.NoError(t, msg.Render())
	assert.Equal(t, "Hi <Budi>, welcome! http://assoc.test", msg.TextContent)
	assert.Equal(t, "<p><b>&lt;Budi&gt;</b></p>", msg.HTMLContent)

	missing := EmailMessage{TemplateName: "lol"}
	assert.EqualError(t, missing.Render(), fmt.Sprintf("email template %q not found", "lol"))

	plain := EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render())
	assert.Equal(t, "hello", plain.TextContent)
	assert.False(t, plain.HasRecipients())
	assert.True(t, plain.HasContent())
}
