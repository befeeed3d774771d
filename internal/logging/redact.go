package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

// redactor scrubs sensitive data from log fields before encoding. Field names
// in the deny set are replaced wholesale; pattern matches inside string values
// are replaced in place.
type redactor struct {
	fields   map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	r := &redactor{
		fields: make(map[string]struct{}, len(cfg.Fields)),
	}
	for _, f := range cfg.Fields {
		r.fields[f] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *redactor) redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if _, deny := r.fields[f.Key]; deny {
			out[i] = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: redactedValue}
			continue
		}
		if f.Type == zapcore.StringType {
			f.String = r.redactString(f.String)
		}
		out[i] = f
	}
	return out
}

func (r *redactor) redactString(s string) string {
	for _, re := range r.patterns {
		s = re.ReplaceAllString(s, redactedValue)
	}
	return s
}

// redactingCore is a zapcore.Core that scrubs fields and messages on write.
type redactingCore struct {
	zapcore.Core
	redactor *redactor
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{
		Core:     c.Core.With(c.redactor.redactFields(fields)),
		redactor: c.redactor,
	}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = c.redactor.redactString(ent.Message)
	return c.Core.Write(ent, c.redactor.redactFields(fields))
}
