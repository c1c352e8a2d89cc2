package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
)

var (
	templates   = make(tmplCache)
	templatesMu sync.RWMutex
	frontendURL string
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: frontendURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate() (tmplCacheEntry, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	entry, ok := templates[m.TemplateName]
	return entry, ok
}

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	entry, ok := m.getTemplate()
	if !ok {
		return fmt.Errorf("email template %q not found", m.TemplateName)
	}

	if entry.text != nil && m.BodyStr == "" {
		var buff bytes.Buffer
		if err := entry.text.Execute(&buff, m.getContextData()); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}
	if entry.html != nil {
		var buff bytes.Buffer
		if err := entry.html.Execute(&buff, m.getContextData()); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads every "<name>.txt" / "<name>.gohtml" pair found under dir in fsys.
// Files starting with "_" are base layouts shared by all templates.
func ParseEmailTemplates(fsys fs.FS, dir, frontendBaseURL string, strict bool, logger Logger) {
	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}

	cache := make(tmplCache)
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry := cache[name]

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, path.Join(dir, "_base.txt"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fp, err), err)
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, path.Join(dir, "_base.gohtml"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fp, err), err)
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		}
		cache[name] = entry
	}

	templatesMu.Lock()
	templates = cache
	frontendURL = frontendBaseURL
	templatesMu.Unlock()
}
