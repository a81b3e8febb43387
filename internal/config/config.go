/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config loads the daemon configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"dirpx.dev/exnotify/address"
	"dirpx.dev/exnotify/kind"
	"dirpx.dev/exnotify/notice"
)

// Config captures all runtime configuration of exnotifyd.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Notifier NotifierConfig
	Mail     MailConfig
}

// AppConfig contains generic application settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServerConfig holds listener addresses.
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// NotifierConfig drives classification, normalization and throttling.
type NotifierConfig struct {
	AppRoot          string
	PublicDir        string
	ConsiderLocal    []string
	NotFoundKinds    []string
	FilterParameters []string
	ClassPolicy      notice.ClassPolicy
	ShowLocal        bool
	RateLimit        int
	RateBurst        int
}

// MailConfig describes the SMTP delivery channel.
type MailConfig struct {
	Recipients    []string
	Sender        string
	SubjectPrefix string
	SMTP          SMTPConfig
}

// SMTPConfig stores SMTP relay credentials.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// Load reads .env files (default ".env", missing files are ignored), then
// the environment, applies defaults and validates the result. Variables
// already present in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	ldr := &envLoader{}
	cfg := &Config{}

	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Server.HTTPAddr = ldr.getString("HTTP_ADDR", ":8080", false)
	cfg.Server.GRPCAddr = ldr.getString("GRPC_ADDR", ":9090", false)

	cfg.Notifier.AppRoot = ldr.getString("EXNOTIFY_APP_ROOT", workingDir(), false)
	cfg.Notifier.PublicDir = ldr.getString("EXNOTIFY_PUBLIC_DIR", "public", false)
	cfg.Notifier.ConsiderLocal = ldr.getStringSlice("EXNOTIFY_CONSIDER_LOCAL", false)
	cfg.Notifier.NotFoundKinds = ldr.getStringSlice("EXNOTIFY_NOT_FOUND_KINDS", false)
	cfg.Notifier.FilterParameters = ldr.getStringSlice("EXNOTIFY_FILTER_PARAMETERS", false)
	cfg.Notifier.ShowLocal = ldr.getBool("EXNOTIFY_SHOW_LOCAL", false, false)
	cfg.Notifier.RateLimit = ldr.getInt("EXNOTIFY_RATE_LIMIT", 0, false)
	cfg.Notifier.RateBurst = ldr.getInt("EXNOTIFY_RATE_BURST", 0, false)

	policy, err := notice.ParseClassPolicy(ldr.getString("EXNOTIFY_CLASS_POLICY", "", false))
	if err != nil {
		ldr.addError(fmt.Sprintf("EXNOTIFY_CLASS_POLICY: %v", err))
	}
	cfg.Notifier.ClassPolicy = policy

	cfg.Mail.Recipients = ldr.getStringSlice("EXNOTIFY_RECIPIENTS", true)
	cfg.Mail.Sender = ldr.getString("EXNOTIFY_SENDER", "", true)
	cfg.Mail.SubjectPrefix = ldr.getString("EXNOTIFY_SUBJECT_PREFIX", "[ERROR]", false)
	cfg.Mail.SMTP.Host = ldr.getString("SMTP_HOST", "", true)
	cfg.Mail.SMTP.Port = ldr.getInt("SMTP_PORT", 25, false)
	cfg.Mail.SMTP.User = ldr.getString("SMTP_USER", "", false)
	cfg.Mail.SMTP.Pass = ldr.getString("SMTP_PASS", "", false)

	cfg.validate(ldr)
	if err := ldr.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks values whose syntax is owned by other packages, so bad
// entries fail at boot instead of at request time.
func (c *Config) validate(ldr *envLoader) {
	for _, entry := range c.Notifier.ConsiderLocal {
		if _, err := address.ParseEntry(entry); err != nil {
			ldr.addError(fmt.Sprintf("EXNOTIFY_CONSIDER_LOCAL: %v", err))
		}
	}
	for _, k := range c.Notifier.NotFoundKinds {
		if strings.Contains(k, "*") {
			continue
		}
		if _, err := kind.Parse(k); err != nil {
			ldr.addError(fmt.Sprintf("EXNOTIFY_NOT_FOUND_KINDS: %q: %v", k, err))
		}
	}
	if c.Notifier.RateLimit < 0 {
		ldr.addError("EXNOTIFY_RATE_LIMIT must not be negative")
	}
	if c.Notifier.RateBurst < 0 {
		ldr.addError("EXNOTIFY_RATE_BURST must not be negative")
	}
	if c.Mail.SMTP.Port <= 0 || c.Mail.SMTP.Port > 65535 {
		ldr.addError(fmt.Sprintf("SMTP_PORT %d is out of range", c.Mail.SMTP.Port))
	}
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) lookup(key string, required bool) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		if val = strings.TrimSpace(val); val != "" {
			return val, true
		}
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return "", false
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := l.lookup(key, required); ok {
		return val
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw, _ := l.lookup(key, required)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
